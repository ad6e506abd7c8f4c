package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/govlens/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

// Store is a SQLite database holding resource snapshots.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.govlens/data/snapshot.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".govlens", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "snapshot.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(context.Background(), migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SnapshotStore returns a SnapshotStore interface backed by this store.
func (s *Store) SnapshotStore() driven.SnapshotStore {
	return &snapshotStore{store: s}
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// migration is one numbered .up.sql file.
type migration struct {
	version int
	name    string
}

// pendingMigrations returns the .up.sql files in fsys newer than applied,
// in version order. Files without a numeric prefix are ignored.
func pendingMigrations(fsys fs.FS, applied int) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	var pending []migration
	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= applied {
			continue
		}
		pending = append(pending, migration{version: version, name: name})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })
	return pending, nil
}

// migrate applies pending migrations, each in its own transaction.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	applied, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	pending, err := pendingMigrations(fsys, applied)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := s.apply(ctx, fsys, m); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, fsys fs.FS, m migration) error {
	body, err := fs.ReadFile(fsys, m.name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Snapshot Store ====================

// snapshotStore implements driven.SnapshotStore.
type snapshotStore struct {
	store *Store
}

var _ driven.SnapshotStore = (*snapshotStore)(nil)

// Put stores or replaces the bytes of a resource.
func (s *snapshotStore) Put(ctx context.Context, source, resourceID string, data []byte) error {
	sum := sha256.Sum256(data)
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO snapshots (resource_id, source, data, size, sha256, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(resource_id) DO UPDATE SET
			source = excluded.source,
			data = excluded.data,
			size = excluded.size,
			sha256 = excluded.sha256,
			fetched_at = excluded.fetched_at
	`, resourceID, source, data, len(data), hex.EncodeToString(sum[:]), s.store.now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Get returns the stored bytes and when they were fetched.
func (s *snapshotStore) Get(ctx context.Context, resourceID string) ([]byte, time.Time, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT data, sha256, fetched_at FROM snapshots WHERE resource_id = ?
	`, resourceID)

	var data []byte
	var digest string
	var fetchedAt time.Time
	if err := row.Scan(&data, &digest, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, &domain.NotFoundError{Kind: "snapshot", ID: resourceID}
		}
		return nil, time.Time{}, fmt.Errorf("scanning snapshot: %w", err)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != digest {
		return nil, time.Time{}, &domain.MalformedContentError{ResourceID: resourceID, Reason: "snapshot checksum mismatch"}
	}
	return data, fetchedAt, nil
}

// List returns the stored resource IDs with the given prefix, sorted.
func (s *snapshotStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT resource_id FROM snapshots WHERE substr(resource_id, 1, ?) = ? ORDER BY resource_id
	`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a resource. Deleting a missing resource is not an error.
func (s *snapshotStore) Delete(ctx context.Context, resourceID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM snapshots WHERE resource_id = ?", resourceID); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

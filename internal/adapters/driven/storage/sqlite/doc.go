// Package sqlite persists the last bytes fetched for each live resource so
// a framework can still be served from its snapshot when the upstream is
// unreachable.
//
// The driver is modernc.org/sqlite, which needs no CGO. The database lives
// at <data dir>/snapshot.db (default ~/.govlens/data) and is opened in WAL
// mode. Rows carry a SHA-256 of their payload; a row whose checksum no
// longer matches is reported as malformed rather than served.
//
// Schema changes are numbered files in migrations/, applied in order on
// open and recorded in schema_migrations.
package sqlite

package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Telemetry ---

type recordedEvent struct {
	name   string
	fields map[string]any
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingTelemetry) Record(event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: event, fields: fields})
}

func (r *recordingTelemetry) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.name == event {
			n++
		}
	}
	return n
}

// transitions returns the target states of every breaker transition, in order.
func (r *recordingTelemetry) transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.name == driven.EventBreakerTransition {
			out = append(out, e.fields["state"].(string))
		}
	}
	return out
}

// --- Source loaders ---

// mockSource implements driven.SourceLoader.
type mockSource struct {
	name string
	live bool

	mu   sync.Mutex
	data map[string][]byte
	err  error
	// block, when set, is waited on before answering.
	block   chan struct{}
	entered chan struct{}

	calls atomic.Int64
}

func newMockSource(name string, live bool) *mockSource {
	return &mockSource{name: name, live: live, data: make(map[string][]byte)}
}

func (m *mockSource) Name() string { return m.name }
func (m *mockSource) Live() bool   { return m.live }

func (m *mockSource) put(resourceID, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[resourceID] = []byte(data)
}

func (m *mockSource) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockSource) Fetch(ctx context.Context, resourceID string) ([]byte, error) {
	m.calls.Add(1)
	m.mu.Lock()
	block, entered := m.block, m.entered
	m.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.data[resourceID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "resource", ID: resourceID}
	}
	return data, nil
}

// --- Snapshot store ---

type memSnapshots struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: make(map[string][]byte)}
}

func (m *memSnapshots) Put(_ context.Context, _, resourceID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[resourceID] = append([]byte(nil), data...)
	return nil
}

func (m *memSnapshots) Get(_ context.Context, resourceID string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[resourceID]
	if !ok {
		return nil, time.Time{}, &domain.NotFoundError{Kind: "snapshot", ID: resourceID}
	}
	return d, time.Time{}, nil
}

func (m *memSnapshots) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.data {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memSnapshots) Delete(_ context.Context, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, resourceID)
	return nil
}

func (m *memSnapshots) has(resourceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[resourceID]
	return ok
}

// --- Normaliser ---

// lineNormaliser handles ".txt" resources with one reference per line:
//
//	id|title|severity|content
//
// A line starting with "!" is an invalid entry; a resource whose first line
// is "MALFORMED" fails as a whole.
type lineNormaliser struct{}

func (lineNormaliser) Extensions() []string { return []string{".txt"} }

func (lineNormaliser) Normalise(_, resourceID string, data []byte) (*driven.NormaliseResult, error) {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "MALFORMED") {
		return nil, &domain.MalformedContentError{ResourceID: resourceID, Reason: "bad header"}
	}
	res := &driven.NormaliseResult{}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "!") {
			res.Failed = append(res.Failed, resourceID+"#"+strings.TrimPrefix(line, "!"))
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		res.References = append(res.References, domain.Reference{
			ID:       parts[0],
			Title:    parts[1],
			Severity: domain.Severity(parts[2]),
			Content:  parts[3],
		})
	}
	return res, nil
}

// --- Framework loader ---

// stubLoader returns canned frameworks and counts loads.
type stubLoader struct {
	mu    sync.Mutex
	fws   map[string][]domain.Reference
	errs  map[string]error
	calls map[string]int
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		fws:   make(map[string][]domain.Reference),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (s *stubLoader) add(fwID string, refs ...domain.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range refs {
		refs[i].FrameworkID = fwID
	}
	s.fws[fwID] = refs
}

func (s *stubLoader) fail(fwID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[fwID] = err
}

func (s *stubLoader) loads(fwID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[fwID]
}

func (s *stubLoader) Load(_ context.Context, desc domain.FrameworkDescriptor) (domain.Framework, []domain.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[desc.ID]++
	if err := s.errs[desc.ID]; err != nil {
		return domain.Framework{}, nil, err
	}
	refs, ok := s.fws[desc.ID]
	if !ok {
		return domain.Framework{}, nil, &domain.NotFoundError{Kind: "framework", ID: desc.ID}
	}
	fw := domain.Framework{ID: desc.ID, Name: desc.Name, Kind: domain.KindFramework, Origin: domain.OriginLive}
	out := make([]domain.Reference, len(refs))
	copy(out, refs)
	for _, r := range out {
		fw.ReferenceIDs = append(fw.ReferenceIDs, r.ID)
	}
	return fw, out, nil
}

// --- Curated mappings ---

type mockMappings []domain.CuratedMapping

func (m mockMappings) Lookup(source, target domain.ReferenceKey) (float64, bool) {
	for _, e := range m {
		if e.Source == source && e.Target == target {
			return e.Strength, true
		}
		if e.Bidirectional && e.Source == target && e.Target == source {
			return e.Strength, true
		}
	}
	return 0, false
}

// --- Query service ---

// countingService implements driving.QueryService and counts calls.
type countingService struct {
	calls atomic.Int64
}

var _ driving.QueryService = (*countingService)(nil)

func (c *countingService) ListFrameworks(context.Context) ([]domain.Framework, error) {
	c.calls.Add(1)
	return []domain.Framework{}, nil
}

func (c *countingService) GetFramework(_ context.Context, id string) (*driving.FrameworkDetail, error) {
	c.calls.Add(1)
	return &driving.FrameworkDetail{Framework: domain.Framework{ID: id}}, nil
}

func (c *countingService) GetReference(_ context.Context, fw, ref string) (*domain.Reference, error) {
	c.calls.Add(1)
	return &domain.Reference{FrameworkID: fw, ID: ref}, nil
}

func (c *countingService) Search(context.Context, string, domain.SearchFilters, int) ([]domain.SearchHit, error) {
	c.calls.Add(1)
	return []domain.SearchHit{}, nil
}

func (c *countingService) Correlate(
	context.Context, domain.ReferenceKey, string,
) ([]domain.CorrelationMapping, error) {
	c.calls.Add(1)
	return []domain.CorrelationMapping{}, nil
}

func (c *countingService) FindGaps(context.Context, string, []string, domain.Severity) ([]domain.Gap, error) {
	c.calls.Add(1)
	return []domain.Gap{}, nil
}

func (c *countingService) Refresh(context.Context, string) error {
	c.calls.Add(1)
	return nil
}

func (c *countingService) CacheStats(context.Context) (domain.CacheStats, error) {
	c.calls.Add(1)
	return domain.CacheStats{}, nil
}

func (c *countingService) BreakerStats(context.Context) ([]domain.BreakerStats, error) {
	c.calls.Add(1)
	return []domain.BreakerStats{}, nil
}

// --- Helpers ---

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.Breaker.BackoffBase = 0
	return s
}

func noSleep(context.Context, time.Duration) error { return nil }

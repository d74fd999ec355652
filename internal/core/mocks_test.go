package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gbroads/roadstatus/internal/models"
)

var errRemote = errors.New("connection reset by peer")

// mockAuthClient is a mock implementation of AuthClient
type mockAuthClient struct {
	mu          sync.Mutex
	identity    *models.Identity
	err         error
	signOutErr  error
	release     chan struct{}
	listeners   map[int]models.IdentityListener
	nextID      int
	signOuts    int
	unsubscribe int
}

func newMockAuthClient(identity *models.Identity) *mockAuthClient {
	return &mockAuthClient{identity: identity, listeners: make(map[int]models.IdentityListener)}
}

func (m *mockAuthClient) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.err
}

func (m *mockAuthClient) OnIdentityChange(fn models.IdentityListener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
		m.unsubscribe++
	}
}

func (m *mockAuthClient) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.signOuts++
	err := m.signOutErr
	m.mu.Unlock()
	if err == nil {
		m.emit(models.AuthEventSignedOut, nil)
	}
	return err
}

func (m *mockAuthClient) emit(event models.AuthEvent, identity *models.Identity) {
	m.mu.Lock()
	listeners := make([]models.IdentityListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()
	for _, l := range listeners {
		l(event, identity)
	}
}

func (m *mockAuthClient) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// staticSession is an IdentitySource that is always ready
type staticSession struct {
	state SessionState
	err   error
}

func readySession(identity *models.Identity) *staticSession {
	return &staticSession{state: SessionState{Phase: PhaseReady, Identity: identity}}
}

func (s *staticSession) WaitReady(ctx context.Context) (SessionState, error) {
	return s.state, s.err
}

// mockCatalogSource is a mock implementation of CatalogSource
type mockCatalogSource struct {
	mu           sync.Mutex
	roads        []models.Road
	segments     map[int][]models.RoadSegment
	err          error
	segmentErr   map[int]error
	segmentCalls map[int]int
	barrier      *sync.WaitGroup
	// gate holds segment fetches until closed; started is signalled as each fetch begins
	gate    chan struct{}
	started chan struct{}
}

func newMockCatalogSource() *mockCatalogSource {
	return &mockCatalogSource{
		segments:     make(map[int][]models.RoadSegment),
		segmentErr:   make(map[int]error),
		segmentCalls: make(map[int]int),
	}
}

func (m *mockCatalogSource) Roads(ctx context.Context) ([]models.Road, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.Road(nil), m.roads...), nil
}

func (m *mockCatalogSource) Segments(ctx context.Context, roadID int) ([]models.RoadSegment, error) {
	m.mu.Lock()
	m.segmentCalls[roadID]++
	err := m.segmentErr[roadID]
	segments := append([]models.RoadSegment(nil), m.segments[roadID]...)
	barrier, gate, started := m.barrier, m.gate, m.started
	m.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (m *mockCatalogSource) calls(roadID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.segmentCalls[roadID]
}

// mockReportStore is a mock implementation of ReportStore
type mockReportStore struct {
	reports   []models.RoadReport
	inserted  []*models.NewReportRequest
	updates   int
	lastQuery models.Query
	err       error
	insertErr error
	updateErr error
}

func (m *mockReportStore) ListReports(ctx context.Context, q models.Query) ([]models.RoadReport, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.RoadReport(nil), m.reports...), nil
}

func (m *mockReportStore) InsertReport(ctx context.Context, req *models.NewReportRequest) (*models.RoadReport, error) {
	m.inserted = append(m.inserted, req)
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	return &models.RoadReport{
		ID:              100 + len(m.inserted),
		RoadID:          req.RoadID,
		RoadName:        req.RoadName,
		UserID:          7,
		NearestTown:     req.NearestTown,
		BlockedDuration: req.BlockedDuration,
		Subdivision:     req.Subdivision,
		Cause:           models.Cause(req.Cause),
		PhotoURL:        req.PhotoURL,
		Status:          models.ReportStatusPending,
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockReportStore) UpdateReportStatus(ctx context.Context, id int, status models.ReportStatus) (*models.RoadReport, error) {
	m.updates++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for _, r := range m.reports {
		if r.ID == id {
			r.Status = status
			return &r, nil
		}
	}
	return &models.RoadReport{ID: id, Status: status}, nil
}

// mockObjectStore is a mock implementation of ObjectStore
type mockObjectStore struct {
	uploads map[string]string
	err     error
}

func (m *mockObjectStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.uploads == nil {
		m.uploads = make(map[string]string)
	}
	m.uploads[bucket+"/"+objectPath] = string(data)
	return bucket + "/" + objectPath, nil
}

func (m *mockObjectStore) PublicURL(bucket, objectPath string) string {
	return "http://api.local/api/v1/storage/public/" + bucket + "/" + objectPath
}

// mockNavigator records navigations
type mockNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (m *mockNavigator) Navigate(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
}

func (m *mockNavigator) visited() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// fakeTimers replaces time.AfterFunc with timers fired by hand
type fakeTimers struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (c *fakeTimers) after(d time.Duration, fn func()) timer {
	t := &fakeTimer{delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fireActive runs every timer that was not stopped
func (c *fakeTimers) fireActive() {
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/oauth"
	"github.com/gbroads/roadstatus/internal/repositories"
	"github.com/gbroads/roadstatus/internal/sms"
	"github.com/gbroads/roadstatus/internal/storage"
)

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct {
	users []*models.User
	err   error
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = len(m.users) + 1
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email != nil && *u.Email == email })
}

func (m *mockUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err == repositories.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *mockUserRepository) find(match func(*models.User) bool) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// mockUserTokenRepository is a mock implementation of UserTokenRepository
type mockUserTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]int
	err    error
}

func newMockUserTokenRepository() *mockUserTokenRepository {
	return &mockUserTokenRepository{tokens: map[string]int{}}
}

func (m *mockUserTokenRepository) Create(ctx context.Context, userToken *models.UserToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tokens[userToken.Token] = userToken.UserID
	return nil
}

func (m *mockUserTokenRepository) GetByToken(ctx context.Context, token string) (*models.UserToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	userID, ok := m.tokens[token]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.UserToken{UserID: userID, Token: token}, nil
}

func (m *mockUserTokenRepository) UpdateToken(ctx context.Context, oldToken, newToken string, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if owner, ok := m.tokens[oldToken]; !ok || owner != userID {
		return repositories.ErrNotFound
	}
	delete(m.tokens, oldToken)
	m.tokens[newToken] = userID
	return nil
}

func (m *mockUserTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.tokens, token)
	return nil
}

func (m *mockUserTokenRepository) DeleteByUser(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for token, owner := range m.tokens {
		if owner == userID {
			delete(m.tokens, token)
		}
	}
	return nil
}

// mockUserIdentityRepository is a mock implementation of UserIdentityRepository
type mockUserIdentityRepository struct {
	links []models.UserIdentity
	err   error
}

func (m *mockUserIdentityRepository) GetUserID(ctx context.Context, provider, providerUserID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	for _, l := range m.links {
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			return l.UserID, nil
		}
	}
	return 0, repositories.ErrNotFound
}

func (m *mockUserIdentityRepository) Create(ctx context.Context, identity *models.UserIdentity) error {
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, *identity)
	return nil
}

// mockOneTimeStore is a mock implementation of OneTimeStore
type mockOneTimeStore struct {
	values map[string][]byte
	err    error
}

func newMockOneTimeStore() *mockOneTimeStore {
	return &mockOneTimeStore{values: map[string][]byte{}}
}

func (m *mockOneTimeStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = data
	return nil
}

func (m *mockOneTimeStore) Take(ctx context.Context, key string, dest any) error {
	if m.err != nil {
		return m.err
	}
	data, ok := m.values[key]
	if !ok {
		return repositories.ErrNotFound
	}
	delete(m.values, key)
	return json.Unmarshal(data, dest)
}

// mockOTPStore is a mock implementation of OTPStore
type mockOTPStore struct {
	codes map[string]string
	err   error
}

func newMockOTPStore() *mockOTPStore {
	return &mockOTPStore{codes: map[string]string{}}
}

func (m *mockOTPStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.codes[phone] = code
	return nil
}

func (m *mockOTPStore) Verify(ctx context.Context, phone, code string, maxAttempts int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if stored, ok := m.codes[phone]; ok && stored == code {
		delete(m.codes, phone)
		return true, nil
	}
	return false, nil
}

// mockSMSProvider is a mock implementation of sms.Provider
type mockSMSProvider struct {
	sent []sms.Message
	err  error
}

func (m *mockSMSProvider) Name() string { return "mock" }

func (m *mockSMSProvider) Send(ctx context.Context, msg sms.Message) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return strconv.Itoa(len(m.sent)), nil
}

// mockOAuthProvider is a mock implementation of oauth.Provider
type mockOAuthProvider struct {
	info *oauth.UserInfo
	err  error
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	return "https://accounts.example/consent?state=" + state
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth.UserInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// mockRoadRepository is a mock implementation of RoadRepository
type mockRoadRepository struct {
	roads []models.Road
	err   error
}

func (m *mockRoadRepository) List(ctx context.Context, q models.Query) ([]models.Road, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roads, nil
}

func (m *mockRoadRepository) GetByID(ctx context.Context, id int) (*models.Road, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.roads {
		if m.roads[i].ID == id {
			return &m.roads[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

// mockRoadSegmentRepository is a mock implementation of RoadSegmentRepository
type mockRoadSegmentRepository struct {
	segments []models.RoadSegment
	err      error
}

func (m *mockRoadSegmentRepository) List(ctx context.Context, q models.Query) ([]models.RoadSegment, error) {
	if m.err != nil {
		return nil, m.err
	}
	roadID, filtered := q.Eq("road_id")
	out := []models.RoadSegment{}
	for _, s := range m.segments {
		if !filtered || strconv.Itoa(s.RoadID) == roadID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRoadSegmentRepository) CountByRoad(ctx context.Context, roadID int) (int, error) {
	segments, err := m.List(ctx, models.Query{Filters: []models.Filter{{Column: "road_id", Value: strconv.Itoa(roadID)}}})
	return len(segments), err
}

// mockRoadReportRepository is a mock implementation of RoadReportRepository
type mockRoadReportRepository struct {
	reports   []models.RoadReport
	lastQuery models.Query
	created   *models.RoadReport
	updated   map[int]models.ReportStatus
	err       error
	writeErr  error
}

func (m *mockRoadReportRepository) List(ctx context.Context, q models.Query) ([]models.RoadReport, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.reports, nil
}

func (m *mockRoadReportRepository) GetByID(ctx context.Context, id int) (*models.RoadReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.reports {
		if r.ID == id {
			report := r
			return &report, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockRoadReportRepository) Create(ctx context.Context, report *models.RoadReport) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	report.ID = len(m.reports) + 100
	m.created = report
	return nil
}

func (m *mockRoadReportRepository) UpdateStatus(ctx context.Context, id int, status models.ReportStatus) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.updated == nil {
		m.updated = map[int]models.ReportStatus{}
	}
	m.updated[id] = status
	return nil
}

// mockStorage is a mock implementation of storage.Storage
type mockStorage struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMockStorage() *mockStorage {
	return &mockStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockStorage) Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[bucket+"/"+path] = data
	m.types[bucket+"/"+path] = contentType
	return nil
}

func (m *mockStorage) Get(ctx context.Context, bucket, path string) (*storage.Object, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[bucket+"/"+path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		ContentType: m.types[bucket+"/"+path],
		Size:        int64(len(data)),
	}, nil
}

func (m *mockStorage) Delete(ctx context.Context, bucket, path string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.objects, bucket+"/"+path)
	return nil
}

// mockMetrics counts recorded events
type mockMetrics struct {
	submitted int
	moderated []string
	uploads   []bool
	signIns   []string
	otpsSent  int
}

func (m *mockMetrics) RecordReportSubmitted()         { m.submitted++ }
func (m *mockMetrics) RecordModeration(status string) { m.moderated = append(m.moderated, status) }
func (m *mockMetrics) RecordUpload(ok bool)           { m.uploads = append(m.uploads, ok) }
func (m *mockMetrics) RecordSignIn(method string)     { m.signIns = append(m.signIns, method) }
func (m *mockMetrics) RecordOTPSent()                 { m.otpsSent++ }

func strPtr(s string) *string {
	return &s
}

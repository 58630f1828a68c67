package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/auth"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/users"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/verificationtokens"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- clock ---

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- in-memory repositories ---

// memStore backs all fake repositories. Fakes ignore the DBTX they are
// bound to; transactions only matter for the sqlmock based tests.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	refresh       map[string]*models.RefreshToken
	verifications map[string]*models.VerificationToken

	// hooks
	markUsedRefresh  func(id string) (changed, handled bool, err error)
	revokeFamilyErr  error
	createRefreshErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*models.User),
		refresh:       make(map[string]*models.RefreshToken),
		verifications: make(map[string]*models.VerificationToken),
	}
}

type memUsers struct{ s *memStore }

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.users {
		if e.Email == u.Email {
			return nil, common.ErrUserAlreadyExists
		}
		if u.OAuthID.Valid && e.OAuthProvider == u.OAuthProvider && e.OAuthID == u.OAuthID {
			return nil, common.ErrOAuthAccountAlreadyLinked
		}
	}
	c := cloneUser(u)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.OAuthProvider == "" {
		c.OAuthProvider = models.ProviderLocal
	}
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r memUsers) find(pred func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if pred(u) {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) GetByOAuthID(_ context.Context, p models.OAuthProvider, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.OAuthProvider == p && u.OAuthID.Valid && u.OAuthID.String == id })
}

func (r memUsers) update(id string, fn func(*models.User)) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	fn(u)
	return cloneUser(u), nil
}

func (r memUsers) LinkOAuth(_ context.Context, id string, p models.OAuthProvider, oauthID string) (*models.User, error) {
	return r.update(id, func(u *models.User) {
		u.OAuthProvider = p
		u.OAuthID = sql.NullString{String: oauthID, Valid: true}
		u.IsActive = true
	})
}

func (r memUsers) Activate(_ context.Context, id string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.IsActive = true })
}

func (r memUsers) SetPassword(_ context.Context, id, digest string) error {
	_, err := r.update(id, func(u *models.User) { u.Password = sql.NullString{String: digest, Valid: true} })
	return err
}

func (r memUsers) UpdateProfile(_ context.Context, id string, p models.UserProfile) (*models.User, error) {
	return r.update(id, func(u *models.User) {
		if p.FirstName != nil {
			u.FirstName = sql.NullString{String: *p.FirstName, Valid: true}
		}
		if p.SecondName != nil {
			u.SecondName = sql.NullString{String: *p.SecondName, Valid: true}
		}
	})
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	for k, t := range r.s.refresh {
		if t.UserID == id {
			delete(r.s.refresh, k)
		}
	}
	for k, t := range r.s.verifications {
		if t.UserID == id {
			delete(r.s.verifications, k)
		}
	}
	return nil
}

type memRefresh struct{ s *memStore }

func cloneRefresh(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	return &c
}

func (r memRefresh) Create(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createRefreshErr != nil {
		return r.s.createRefreshErr
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	for _, e := range r.s.refresh {
		if e.TokenHash == t.TokenHash {
			return common.ErrorInternal
		}
	}
	r.s.refresh[t.ID] = cloneRefresh(t)
	return nil
}

func (r memRefresh) GetByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.refresh {
		if t.TokenHash == hash {
			return cloneRefresh(t), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memRefresh) GetByID(_ context.Context, id string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.refresh[id]; ok {
		return cloneRefresh(t), nil
	}
	return nil, common.ErrorNotFound
}

func (r memRefresh) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	if hook := r.s.markUsedRefresh; hook != nil {
		if changed, handled, err := hook(id); handled {
			return changed, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[id]
	if !ok || t.UsedAt.Valid || t.RevokedAt.Valid {
		return false, nil
	}
	t.UsedAt = sql.NullTime{Time: at, Valid: true}
	return true, nil
}

func (r memRefresh) revokeWhere(at time.Time, pred func(*models.RefreshToken) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.refresh {
		if pred(t) && !t.RevokedAt.Valid {
			t.RevokedAt = sql.NullTime{Time: at, Valid: true}
			n++
		}
	}
	return n
}

func (r memRefresh) Revoke(_ context.Context, id string, at time.Time) (int64, error) {
	return r.revokeWhere(at, func(t *models.RefreshToken) bool { return t.ID == id }), nil
}

func (r memRefresh) RevokeFamily(_ context.Context, familyID string, at time.Time) (int64, error) {
	if r.s.revokeFamilyErr != nil {
		return 0, r.s.revokeFamilyErr
	}
	return r.revokeWhere(at, func(t *models.RefreshToken) bool { return t.FamilyID == familyID }), nil
}

func (r memRefresh) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int64, error) {
	return r.revokeWhere(at, func(t *models.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r memRefresh) ListFamily(_ context.Context, familyID string) ([]*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.RefreshToken
	for _, t := range r.s.refresh {
		if t.FamilyID == familyID {
			out = append(out, cloneRefresh(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return !out[i].ParentTokenID.Valid
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type memVerifications struct{ s *memStore }

func cloneVerification(t *models.VerificationToken) *models.VerificationToken {
	c := *t
	return &c
}

func (r memVerifications) Create(_ context.Context, t *models.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.s.verifications[t.ID] = cloneVerification(t)
	return nil
}

func (r memVerifications) GetByHash(_ context.Context, hash string) (*models.VerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.verifications {
		if t.TokenHash == hash {
			return cloneVerification(t), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memVerifications) DeleteAllForUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.verifications {
		if t.UserID == userID {
			delete(r.s.verifications, k)
		}
	}
	return nil
}

func (r memVerifications) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.verifications[id]
	if !ok || t.UsedAt.Valid || !t.ExpiresAt.After(at) {
		return false, nil
	}
	t.UsedAt = sql.NullTime{Time: at, Valid: true}
	return true, nil
}

func (r memVerifications) GetLatestForUser(_ context.Context, userID string) (*models.VerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *models.VerificationToken
	for _, t := range r.s.verifications {
		if t.UserID == userID && (latest == nil || t.CreatedAt.After(latest.CreatedAt)) {
			latest = t
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	return cloneVerification(latest), nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository {
	return memUsers{m.s}
}

func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return memRefresh{m.s}
}

func (m *fakeRepoManager) VerificationTokens(dbx.DBTX) verificationtokens.Repository {
	return memVerifications{m.s}
}

// --- mailer ---

type sentMail struct {
	kind string
	to   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerification(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"verification", u.Email})
	return m.err
}

func (m *fakeMailer) SendDuplicateRegistrationWarning(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"warning", addr})
	return m.err
}

// --- recording logger ---

type logRecord struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{level, msg})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) { l.add("error", msg) }
func (l *recordingLogger) With(...any) logging.Logger                    { return l }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.level == level {
			n++
		}
	}
	return n
}

// --- wiring ---

const (
	testSecret          = "test-secret"
	testAccessLifetime  = 15 * time.Minute
	testRefreshLifetime = 7 * 24 * time.Hour
	testVerifyLifetime  = 24 * time.Hour
	testCooldown        = time.Minute
)

type testEnv struct {
	db           *sql.DB
	store        *memStore
	clock        *testClock
	logger       *recordingLogger
	mailer       *fakeMailer
	hasher       *cryptox.TokenHasher
	passwords    cryptox.PasswordHasher
	strategies   *auth.Strategies
	refresh      *RefreshTokenService
	verification *VerificationTokenService
	auth         *AuthService
	users        *UserService
}

// newSQLiteDB gives the services a real *sql.DB for BEGIN/COMMIT; the fakes
// never touch it.
func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithDB(t, newSQLiteDB(t))
}

func newTestEnvWithDB(t *testing.T, db *sql.DB) *testEnv {
	t.Helper()

	e := &testEnv{
		db:        db,
		store:     newMemStore(),
		clock:     newTestClock(),
		logger:    &recordingLogger{},
		mailer:    &fakeMailer{},
		hasher:    cryptox.NewTokenHasher(testSecret),
		passwords: cryptox.NewBcryptHasher(4),
	}
	rm := &fakeRepoManager{s: e.store}

	e.strategies = auth.NewStrategies(auth.StrategyConfig{
		Secret:               testSecret,
		AccessLifetime:       testAccessLifetime,
		RefreshLifetime:      testRefreshLifetime,
		VerificationLifetime: testVerifyLifetime,
		Now:                  e.clock.Now,
	})
	e.refresh = NewRefreshTokenService(db, rm, e.hasher, testRefreshLifetime, e.logger, e.clock.Now)
	e.verification = NewVerificationTokenService(db, rm, e.hasher, testVerifyLifetime, e.clock.Now)
	e.auth = NewAuthService(db, rm, e.passwords, e.strategies.Access, e.refresh, e.logger, e.clock.Now)
	e.users = NewUserService(db, rm, e.passwords, e.verification, e.refresh, e.mailer, testCooldown, e.logger)
	return e
}

// addUser stores a user directly; password may be empty for OAuth accounts.
func (e *testEnv) addUser(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	u := &models.User{Email: email, IsActive: active, OAuthProvider: models.ProviderLocal}
	if password != "" {
		digest, err := e.passwords.Hash(password)
		require.NoError(t, err)
		u.Password = sql.NullString{String: digest, Valid: true}
	}
	created, err := memUsers{e.store}.Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func (e *testEnv) refreshRow(t *testing.T, raw string) *models.RefreshToken {
	t.Helper()
	row, err := memRefresh{e.store}.GetByHash(context.Background(), e.hasher.Hash(raw))
	require.NoError(t, err)
	return row
}

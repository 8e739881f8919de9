package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/dbx"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	credsrepo "github.com/dmitrijs2005/credvault/internal/server/repositories/credentials"
	devicesrepo "github.com/dmitrijs2005/credvault/internal/server/repositories/devices"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/loginattempts"
	resetrepo "github.com/dmitrijs2005/credvault/internal/server/repositories/resettokens"
	usersrepo "github.com/dmitrijs2005/credvault/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// --- in-memory fakes ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	errAll error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	for _, u := range f.byID {
		if u.Login == user.Login {
			return nil, common.ErrorConflict
		}
	}
	cp := *user
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	for _, u := range f.byID {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return f.errAll
	}
	if _, ok := f.byID[user.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAttemptsRepo struct {
	mu       sync.Mutex
	attempts []*models.LoginAttempt
	errAll   error
}

func (f *fakeAttemptsRepo) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return f.errAll
	}
	cp := *attempt
	f.attempts = append(f.attempts, &cp)
	return nil
}

func (f *fakeAttemptsRepo) RecentFailures(ctx context.Context, userID string, since time.Time) (*loginattempts.FailureStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	stats := &loginattempts.FailureStats{}
	for _, a := range f.attempts {
		if a.UserID == userID && !a.Success && a.AttemptedAt.After(since) {
			stats.Count++
			if a.AttemptedAt.After(stats.LastFailure) {
				stats.LastFailure = a.AttemptedAt
			}
		}
	}
	return stats, nil
}

type fakeResetRepo struct {
	mu      sync.Mutex
	byToken map[string]*models.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{byToken: map[string]*models.PasswordResetToken{}}
}

func (f *fakeResetRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *token
	f.byToken[cp.Token] = &cp
	return nil
}

func (f *fakeResetRepo) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeResetRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tok, row := range f.byToken {
		if row.UserID == userID {
			delete(f.byToken, tok)
		}
	}
	return nil
}

func (f *fakeResetRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byToken[token]; !ok {
		return false, nil
	}
	delete(f.byToken, token)
	return true, nil
}

type fakeCredsRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.Credential
	errAll error
}

func newFakeCredsRepo() *fakeCredsRepo {
	return &fakeCredsRepo{byID: map[string]*models.Credential{}}
}

func (f *fakeCredsRepo) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	for _, c := range f.byID {
		if c.UserID == cred.UserID && c.Platform == cred.Platform && c.Login == cred.Login {
			return nil, common.ErrorConflict
		}
	}
	cp := *cred
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeCredsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	var out []*models.Credential
	for _, c := range f.byID {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].Login < out[j].Login
	})
	return out, nil
}

func (f *fakeCredsRepo) FindByKey(ctx context.Context, userID, platform, login string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errAll != nil {
		return nil, f.errAll
	}
	for _, c := range f.byID {
		if c.UserID == userID && c.Platform == platform && c.Login == login {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCredsRepo) Delete(ctx context.Context, userID, platform, login string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.byID {
		if c.UserID == userID && c.Platform == platform && c.Login == login {
			cp := *c
			delete(f.byID, id)
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCredsRepo) Touch(ctx context.Context, id, fileRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.FileRef = fileRef
	c.UpdatedAt = time.Now()
	return nil
}

type fakeDevicesRepo struct {
	mu   sync.Mutex
	rows map[string]*models.TrustedDevice // keyed userID+"/"+deviceID
}

func newFakeDevicesRepo() *fakeDevicesRepo {
	return &fakeDevicesRepo{rows: map[string]*models.TrustedDevice{}}
}

func (f *fakeDevicesRepo) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *device
	f.rows[cp.UserID+"/"+cp.DeviceID] = &cp
	return nil
}

func (f *fakeDevicesRepo) ListByUser(ctx context.Context, userID string) ([]*models.TrustedDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TrustedDevice
	for _, d := range f.rows {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (f *fakeDevicesRepo) Delete(ctx context.Context, userID, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "/" + deviceID
	if _, ok := f.rows[key]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, key)
	return nil
}

type fakeRepoManager struct {
	users    *fakeUsersRepo
	attempts *fakeAttemptsRepo
	tokens   *fakeResetRepo
	devices  *fakeDevicesRepo
	creds    *fakeCredsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    newFakeUsersRepo(),
		attempts: &fakeAttemptsRepo{},
		tokens:   newFakeResetRepo(),
		devices:  newFakeDevicesRepo(),
		creds:    newFakeCredsRepo(),
	}
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository              { return m.users }
func (m *fakeRepoManager) LoginAttempts(db dbx.DBTX) loginattempts.Repository  { return m.attempts }
func (m *fakeRepoManager) ResetTokens(db dbx.DBTX) resetrepo.Repository        { return m.tokens }
func (m *fakeRepoManager) Devices(db dbx.DBTX) devicesrepo.Repository          { return m.devices }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credsrepo.Repository        { return m.creds }
func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

type fakeMailer struct {
	mu        sync.Mutex
	sent      []string // recipient|link
	returnErr error
}

func (f *fakeMailer) SendResetEmail(ctx context.Context, recipient, resetLink string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.returnErr != nil {
		return f.returnErr
	}
	f.sent = append(f.sent, recipient+"|"+resetLink)
	return nil
}

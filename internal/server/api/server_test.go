package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeev/authgate/internal/common"
	"github.com/avdeev/authgate/internal/dbx"
	"github.com/avdeev/authgate/internal/logging"
	"github.com/avdeev/authgate/internal/server/auth"
	"github.com/avdeev/authgate/internal/server/config"
	"github.com/avdeev/authgate/internal/server/models"
	usersrepo "github.com/avdeev/authgate/internal/server/repositories/users"
	"github.com/avdeev/authgate/internal/server/users"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// --- fakes ---

type memUsersRepo struct {
	byID   map[string]*models.User
	nextID int
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{byID: map[string]*models.User{}}
}

func (f *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorConflict
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	f.byID[u.ID] = u
	return u, nil
}

func (f *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *memUsersRepo) MarkEmailVerified(ctx context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if u.IsEmailVerified {
		return common.ErrorConflict
	}
	u.IsEmailVerified = true
	return nil
}

func (f *memUsersRepo) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	u, ok := f.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

type fakeRepoManager struct {
	u *memUsersRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

type fakeSender struct {
	lastBody string
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.lastBody = htmlBody
	return nil
}

// --- helpers ---

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	repo   *memUsersRepo
	sender *fakeSender
	mock   sqlmock.Sqlmock
	svc    *users.Service
}

func newTestServer(t *testing.T, environment string) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Environment = environment
	cfg.AccessTokenSecret = "access-secret"
	cfg.RefreshTokenSecret = "refresh-secret"
	cfg.EmailTokenSecret = "email-secret"

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	repo := newMemUsersRepo()
	sender := &fakeSender{}
	tokens := auth.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.EmailTokenSecret)
	svc := users.NewService(db, &fakeRepoManager{u: repo}, tokens, sender, logger, cfg)

	srv := NewServer(cfg, logger, svc)
	return &testServer{router: srv.router(), repo: repo, sender: sender, mock: mock, svc: svc}
}

func (ts *testServer) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if len(w.Body.Bytes()) > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (ts *testServer) verificationToken(t *testing.T) string {
	t.Helper()

	idx := strings.Index(ts.sender.lastBody, "token=")
	require.NotEqual(t, -1, idx, "no verification link in the last email")
	tok := ts.sender.lastBody[idx+len("token="):]
	end := strings.IndexAny(tok, `"<&`)
	require.NotEqual(t, -1, end)
	return tok[:end]
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshTokenCookie {
			return c
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

// --- tests ---

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	w, _ := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing name", `{"email":"a@x.com","password":"Secret123!"}`},
		{"malformed email", `{"name":"A","email":"not-an-email","password":"Secret123!"}`},
		{"short password", `{"name":"A","email":"a@x.com","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.do(t, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	w, _ := ts.do(t, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := ts.do(t, http.MethodPost, "/auth/register", `{"name":"B","email":"A@X.COM","password":"Other456!"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
}

func TestVerifyEmail_BadTokens(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	w, _ := ts.do(t, http.MethodPost, "/auth/verify-email", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing token")

	w, _ = ts.do(t, http.MethodPost, "/auth/verify-email?token=garbage", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "invalid token")
}

func TestLogin_Unverified(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	w, _ := ts.do(t, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := ts.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestRefresh_MissingCookie(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	w, _ := ts.do(t, http.MethodPost, "/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_MissingToken(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	w, _ := ts.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestAuthFlow walks the whole lifecycle: register, verify, login with a
// wrong then correct password, call a protected endpoint, rotate the pair,
// and finally observe revocation kill the old access token.
func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, config.EnvDevelopment)

	// Register.
	w, env := ts.do(t, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	var registered userResponse
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.Equal(t, "a@x.com", registered.Email)
	assert.False(t, registered.IsEmailVerified)

	// Verify email with the emailed token.
	token := ts.verificationToken(t)
	ts.mock.ExpectBegin()
	ts.mock.ExpectCommit()
	w, env = ts.do(t, http.MethodPost, "/auth/verify-email?token="+url.QueryEscape(token), "")
	require.Equal(t, http.StatusOK, w.Code)

	var verified userResponse
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.True(t, verified.IsEmailVerified)

	// Verifying twice is a conflict.
	ts.mock.ExpectBegin()
	ts.mock.ExpectRollback()
	w, _ = ts.do(t, http.MethodPost, "/auth/verify-email?token="+url.QueryEscape(token), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Wrong password.
	w, _ = ts.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"WrongPass1!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Correct password: body carries the access token, cookie the refresh.
	w, env = ts.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var loginData struct {
		User        userResponse `json:"user"`
		AccessToken string       `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &loginData))
	require.NotEmpty(t, loginData.AccessToken)
	assert.Equal(t, registered.ID, loginData.User.ID)

	cookie := refreshCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, refreshCookiePath, cookie.Path)
	assert.False(t, cookie.Secure, "secure flag stays off outside production")
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	// Protected endpoint with the access token.
	w, env = ts.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+loginData.AccessToken)
	})
	require.Equal(t, http.StatusOK, w.Code)

	var me userResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, registered.ID, me.ID)

	// Rotate the pair via the cookie.
	w, env = ts.do(t, http.MethodPost, "/auth/refresh", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: cookie.Value})
	})
	require.Equal(t, http.StatusOK, w.Code)

	var refreshData struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &refreshData))
	require.NotEmpty(t, refreshData.AccessToken)
	refreshCookie(t, w)

	// Revoke everything: both outstanding tokens stop working.
	require.NoError(t, ts.svc.RevokeAll(context.Background(), registered.ID))

	w, _ = ts.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+refreshData.AccessToken)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/auth/refresh", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: cookie.Value})
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_SecureCookieInProduction(t *testing.T) {
	ts := newTestServer(t, config.EnvProduction)

	w, _ := ts.do(t, http.MethodPost, "/auth/register", `{"name":"A","email":"a@x.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	ts.repo.byID["user-1"].IsEmailVerified = true

	w, _ = ts.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := refreshCookie(t, w)
	assert.True(t, cookie.Secure)
}

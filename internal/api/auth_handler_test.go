package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// memUserStore is an in-memory UserStore for handler tests.
type memUserStore struct {
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
}

var _ store.UserStore = (*memUserStore)(nil)

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *memUserStore) Create(_ context.Context, user *domain.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	copied := *user
	m.byID[user.ID] = &copied
	m.byEmail[user.Email] = &copied
	return nil
}

func (m *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUserStore) WithTx(_ *sql.Tx) store.UserStore { return m }

type authFixture struct {
	handler *AuthHandler
	users   *memUserStore
	jwt     auth.JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newMemUserStore()
	jwt := auth.NewJWTService(config.AuthConfig{
		JWTSecret:       "test-secret-at-least-32-characters-long",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})

	return &authFixture{
		handler: NewAuthHandler(users, jwt, auth.NewBcryptHasher(bcrypt.MinCost)),
		users:   users,
		jwt:     jwt,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) AuthResponse {
	t.Helper()

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.handler.Register, "/api/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeAuthResponse(t, rec)
	assert.NotEqual(t, uuid.Nil, resp.UserID)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)

	stored, err := f.users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, stored.Password, "plaintext must not be persisted")
	assert.NotEmpty(t, stored.HashedPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	req := RegisterRequest{Email: "alice@example.com", Password: "a-long-enough-password"}
	rec := postJSON(t, f.handler.Register, "/api/auth/register", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, f.handler.Register, "/api/auth/register", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "bad email", req: RegisterRequest{Email: "not-an-email", Password: "a-long-enough-password"}},
		{name: "short password", req: RegisterRequest{Email: "alice@example.com", Password: "short"}},
		{name: "empty", req: RegisterRequest{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, f.handler.Register, "/api/auth/register", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.handler.Register, "/api/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeAuthResponse(t, rec)
	claims, err := f.jwt.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.handler.Register, "/api/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A wrong password and an unknown email must be indistinguishable.
	wrongPassword := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "the-wrong-password",
	})
	unknownEmail := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
		Email:    "nobody@example.com",
		Password: "a-long-enough-password",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.handler.Register, "/api/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decodeAuthResponse(t, rec)

	rec = postJSON(t, f.handler.Refresh, "/api/auth/refresh", RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	refreshed := decodeAuthResponse(t, rec)
	assert.Equal(t, registered.UserID, refreshed.UserID)
	assert.NotEmpty(t, refreshed.Token)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.handler.Register, "/api/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decodeAuthResponse(t, rec)

	rec = postJSON(t, f.handler.Refresh, "/api/auth/refresh", RefreshRequest{
		RefreshToken: registered.Token,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRejectsDeletedUser(t *testing.T) {
	f := newAuthFixture(t)

	userID := uuid.New()
	refresh, err := f.jwt.GenerateRefreshToken(context.Background(), userID)
	require.NoError(t, err)

	rec := postJSON(t, f.handler.Refresh, "/api/auth/refresh", RefreshRequest{
		RefreshToken: refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

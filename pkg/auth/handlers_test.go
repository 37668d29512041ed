package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// setupAuthAPI wires the auth routes the way pkg/server does: the token
// middleware above, the service router mounted at /auth.
func setupAuthAPI(t *testing.T) (*Service, chi.Router) {
	t.Helper()
	db := setupAuthTestDB(t)
	users := NewUserStore(db)
	tokens := NewRefreshTokenStore(db)
	issuer, err := NewTokenIssuer([]byte("test-secret"), "stocktrail", "stocktrail-api", time.Minute, time.Hour)
	require.NoError(t, err)

	svc := NewService(users, tokens, issuer, NewLoginLimiter(3, time.Minute), discardLogger())

	r := chi.NewRouter()
	r.Use(Middleware(users, issuer, discardLogger()))
	r.Mount("/auth", svc.Router())
	return svc, r
}

func postJSON(t *testing.T, router chi.Router, path string, payload any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getWithBearer(t *testing.T, router chi.Router, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAccount(t *testing.T, router chi.Router, username string) User {
	t.Helper()
	w := postJSON(t, router, "/auth/register", registerRequest{
		Username: username,
		Password: "password-" + username,
		Name:     username,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var user User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	return user
}

func loginAccount(t *testing.T, router chi.Router, username string) tokenResponse {
	t.Helper()
	w := postJSON(t, router, "/auth/login", credentialsRequest{
		Username: username,
		Password: "password-" + username,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// makeAdmin promotes an account directly through the store; registration
// never grants anything above viewer.
func makeAdmin(t *testing.T, svc *Service, userID string) {
	t.Helper()
	_, err := svc.users.UpdateRole(userID, lifecycle.RoleAdmin)
	require.NoError(t, err)
}

func TestRegisterCreatesViewerAccount(t *testing.T) {
	_, router := setupAuthAPI(t)

	user := registerAccount(t, router, "alice")
	assert.Equal(t, lifecycle.RoleViewer, user.Role)
	assert.True(t, user.Active)
	assert.Empty(t, user.PasswordHash, "password hash must never serialize")
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	_, router := setupAuthAPI(t)

	registerAccount(t, router, "alice")
	w := postJSON(t, router, "/auth/register", registerRequest{
		Username: "alice", Password: "another-password", Name: "Alice",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	_, router := setupAuthAPI(t)

	tests := []struct {
		name string
		req  registerRequest
	}{
		{"short username", registerRequest{Username: "ab", Password: "long-enough-pw"}},
		{"bad characters", registerRequest{Username: "Alice Smith", Password: "long-enough-pw"}},
		{"short password", registerRequest{Username: "alice", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/auth/register", tt.req, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLoginReturnsTokenPair(t *testing.T) {
	_, router := setupAuthAPI(t)
	registerAccount(t, router, "alice")

	resp := loginAccount(t, router, "alice")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.ExpiresAt)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, router := setupAuthAPI(t)
	registerAccount(t, router, "alice")

	w := postJSON(t, router, "/auth/login", credentialsRequest{Username: "alice", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown usernames produce the same answer as wrong passwords.
	w2 := postJSON(t, router, "/auth/login", credentialsRequest{Username: "nobody", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.Equal(t, w.Body.String(), w2.Body.String())
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	svc, router := setupAuthAPI(t)
	user := registerAccount(t, router, "alice")

	_, err := svc.users.SetActive(user.ID, false)
	require.NoError(t, err)

	w := postJSON(t, router, "/auth/login", credentialsRequest{Username: "alice", Password: "password-alice"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	_, router := setupAuthAPI(t)
	registerAccount(t, router, "alice")

	for i := 0; i < 3; i++ {
		w := postJSON(t, router, "/auth/login", credentialsRequest{Username: "alice", Password: "wrong"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := postJSON(t, router, "/auth/login", credentialsRequest{Username: "alice", Password: "wrong"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRefreshRotatesToken(t *testing.T) {
	_, router := setupAuthAPI(t)
	registerAccount(t, router, "alice")
	first := loginAccount(t, router, "alice")

	w := postJSON(t, router, "/auth/refresh", refreshRequest{RefreshToken: first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var second tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The exchanged token is single-use.
	w = postJSON(t, router, "/auth/refresh", refreshRequest{RefreshToken: first.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The replacement still works.
	w = postJSON(t, router, "/auth/refresh", refreshRequest{RefreshToken: second.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	_, router := setupAuthAPI(t)

	w := postJSON(t, router, "/auth/refresh", refreshRequest{RefreshToken: "deadbeef"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	_, router := setupAuthAPI(t)
	registerAccount(t, router, "alice")
	session := loginAccount(t, router, "alice")

	w := postJSON(t, router, "/auth/logout", refreshRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = postJSON(t, router, "/auth/refresh", refreshRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Logging out an already dead token is still a no-op success.
	w = postJSON(t, router, "/auth/logout", refreshRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMeReturnsCurrentAccount(t *testing.T) {
	_, router := setupAuthAPI(t)
	registerAccount(t, router, "alice")
	session := loginAccount(t, router, "alice")

	w := getWithBearer(t, router, "/auth/me", session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var user User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)

	w = getWithBearer(t, router, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserAdminEndpointsRequireAdmin(t *testing.T) {
	svc, router := setupAuthAPI(t)
	admin := registerAccount(t, router, "root")
	makeAdmin(t, svc, admin.ID)
	registerAccount(t, router, "alice")

	adminSession := loginAccount(t, router, "root")
	aliceSession := loginAccount(t, router, "alice")

	w := getWithBearer(t, router, "/auth/users", adminSession.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Users     []User `json:"users"`
		TotalSize int    `json:"totalSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalSize)

	w = getWithBearer(t, router, "/auth/users", aliceSession.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = getWithBearer(t, router, "/auth/users", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateRoleEndpoint(t *testing.T) {
	svc, router := setupAuthAPI(t)
	admin := registerAccount(t, router, "root")
	makeAdmin(t, svc, admin.ID)
	alice := registerAccount(t, router, "alice")
	session := loginAccount(t, router, "root")

	w := postPatch(t, router, fmt.Sprintf("/auth/users/%s/role", alice.ID),
		updateRoleRequest{Role: "inspector"}, session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var updated User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, lifecycle.RoleInspector, updated.Role)

	// Unknown roles are rejected.
	w = postPatch(t, router, fmt.Sprintf("/auth/users/%s/role", alice.ID),
		updateRoleRequest{Role: "superuser"}, session.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Admins cannot change their own role.
	w = postPatch(t, router, fmt.Sprintf("/auth/users/%s/role", admin.ID),
		updateRoleRequest{Role: "viewer"}, session.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postPatch(t, router, "/auth/users/nope/role",
		updateRoleRequest{Role: "viewer"}, session.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetActiveEndpointRevokesSessions(t *testing.T) {
	svc, router := setupAuthAPI(t)
	admin := registerAccount(t, router, "root")
	makeAdmin(t, svc, admin.ID)
	alice := registerAccount(t, router, "alice")

	adminSession := loginAccount(t, router, "root")
	aliceSession := loginAccount(t, router, "alice")

	active := false
	w := postPatch(t, router, fmt.Sprintf("/auth/users/%s/active", alice.ID),
		setActiveRequest{Active: &active}, adminSession.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	// The deactivated account can no longer refresh.
	w = postJSON(t, router, "/auth/refresh", refreshRequest{RefreshToken: aliceSession.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Admins cannot deactivate themselves.
	w = postPatch(t, router, fmt.Sprintf("/auth/users/%s/active", admin.ID),
		setActiveRequest{Active: &active}, adminSession.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func postPatch(t *testing.T, router chi.Router, path string, payload any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

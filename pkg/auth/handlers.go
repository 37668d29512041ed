package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

// Service bundles the stores and token machinery behind the auth endpoints.
type Service struct {
	users   *UserStore
	tokens  *RefreshTokenStore
	issuer  *TokenIssuer
	limiter *LoginLimiter
	logger  *slog.Logger
}

// NewService creates the auth service. A nil logger falls back to
// slog.Default().
func NewService(users *UserStore, tokens *RefreshTokenStore, issuer *TokenIssuer, limiter *LoginLimiter, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = NewLoginLimiter(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		tokens:  tokens,
		issuer:  issuer,
		limiter: limiter,
		logger:  logger,
	}
}

// Users exposes the user store for seeding and middleware wiring.
func (s *Service) Users() *UserStore { return s.users }

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// tokenResponse is the payload returned by login and refresh.
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
	User         *User  `json:"user"`
}

// registerHandler handles POST /auth/register. New accounts always start as
// viewers; an admin promotes them afterwards.
func (s *Service) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !usernamePattern.MatchString(req.Username) {
		writeError(w, http.StatusBadRequest, "username must be 3-64 characters of lowercase letters, digits, '.', '_' or '-'")
		return
	}
	if err := CheckPasswordPolicy(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	user, err := s.users.Create(req.Username, req.Name, hash, lifecycle.RoleViewer)
	if errors.Is(err, ErrUsernameTaken) {
		writeError(w, http.StatusConflict, fmt.Sprintf("username %q is already taken", req.Username))
		return
	}
	if err != nil {
		s.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	s.logger.Info("account registered", "userID", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

// loginHandler handles POST /auth/login.
func (s *Service) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if allowed, retryAfter := s.limiter.Allow(req.Username); !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	user, err := s.users.GetByUsername(req.Username)
	if err != nil {
		s.logger.Error("failed to load user for login", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	// Unknown user and wrong password answer identically.
	if user == nil || !VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Active {
		writeError(w, http.StatusForbidden, "account is deactivated")
		return
	}

	s.limiter.Clear(req.Username)
	s.issueTokens(w, user)
}

// refreshHandler handles POST /auth/refresh. Refresh tokens are single-use:
// the presented token is revoked and a new pair is issued.
func (s *Service) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	stored, err := s.tokens.GetByHash(HashRefreshToken(req.RefreshToken))
	if err != nil {
		s.logger.Error("failed to load refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	if stored == nil || !stored.Usable(time.Now()) {
		writeError(w, http.StatusUnauthorized, "refresh token is invalid or expired")
		return
	}

	user, err := s.users.GetByID(stored.UserID)
	if err != nil {
		s.logger.Error("failed to load user for refresh", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	if user == nil || !user.Active {
		writeError(w, http.StatusUnauthorized, "refresh token is invalid or expired")
		return
	}

	if err := s.tokens.Revoke(stored.ID); err != nil {
		s.logger.Error("failed to revoke refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	s.issueTokens(w, user)
}

// logoutHandler handles POST /auth/logout. Presenting the refresh token is
// proof enough of ownership; revoking an already dead token is a no-op.
func (s *Service) logoutHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	stored, err := s.tokens.GetByHash(HashRefreshToken(req.RefreshToken))
	if err != nil {
		s.logger.Error("failed to load refresh token for logout", "error", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	if stored != nil {
		if err := s.tokens.Revoke(stored.ID); err != nil {
			s.logger.Error("failed to revoke refresh token", "error", err)
			writeError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// meHandler handles GET /auth/me.
func (s *Service) meHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := lifecycle.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := s.users.GetByID(actor.ID)
	if err != nil {
		s.logger.Error("failed to load current user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// issueTokens mints an access/refresh pair and writes the token response.
func (s *Service) issueTokens(w http.ResponseWriter, user *User) {
	access, expiresAt, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	plain, hash, err := NewRefreshToken()
	if err != nil {
		s.logger.Error("failed to mint refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	if _, err := s.tokens.Create(user.ID, hash, time.Now().Add(s.issuer.RefreshTTL())); err != nil {
		s.logger.Error("failed to store refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
		User:         user,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

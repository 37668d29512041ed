package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

type updateRoleRequest struct {
	Role string `json:"role"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// listUsersHandler handles GET /auth/users.
func (s *Service) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	pageSize := 0
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	pageToken := r.URL.Query().Get("pageToken")

	users, nextToken, total, err := s.users.List(pageSize, pageToken)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":         users,
		"nextPageToken": nextToken,
		"totalSize":     total,
	})
}

// getUserHandler handles GET /auth/users/{userId}.
func (s *Service) getUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := s.users.GetByID(userID)
	if err != nil {
		s.logger.Error("failed to get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %q not found", userID))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// updateRoleHandler handles PATCH /auth/users/{userId}/role. Admins cannot
// change their own role, which keeps at least one admin reachable.
func (s *Service) updateRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	caller, _ := lifecycle.ActorFromContext(r.Context())

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := lifecycle.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if userID == caller.ID {
		writeError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	user, err := s.users.UpdateRole(userID, role)
	if err != nil {
		s.logger.Error("failed to update user role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %q not found", userID))
		return
	}

	s.logger.Info("user role changed", "userID", userID, "role", role, "changedBy", caller.ID)
	writeJSON(w, http.StatusOK, user)
}

// setActiveHandler handles PATCH /auth/users/{userId}/active. Deactivation
// also revokes the user's refresh tokens so sessions end when the access
// token expires.
func (s *Service) setActiveHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	caller, _ := lifecycle.ActorFromContext(r.Context())

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeError(w, http.StatusBadRequest, "invalid request body: active is required")
		return
	}

	if userID == caller.ID {
		writeError(w, http.StatusBadRequest, "cannot change your own active flag")
		return
	}

	user, err := s.users.SetActive(userID, *req.Active)
	if err != nil {
		s.logger.Error("failed to set user active flag", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %q not found", userID))
		return
	}

	if !*req.Active {
		if revoked, err := s.tokens.RevokeAllForUser(userID); err != nil {
			s.logger.Error("failed to revoke tokens for deactivated user", "error", err, "userID", userID)
		} else if revoked > 0 {
			s.logger.Info("revoked refresh tokens for deactivated user", "userID", userID, "revoked", revoked)
		}
	}

	s.logger.Info("user active flag changed", "userID", userID, "active", *req.Active, "changedBy", caller.ID)
	writeJSON(w, http.StatusOK, user)
}

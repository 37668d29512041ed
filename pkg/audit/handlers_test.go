package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRequestsHandler(t *testing.T) {
	store := setupAuditTestDB(t)
	router := Router(store, nil)

	now := time.Now()
	appendRecord(t, store, "user-1", "scan", "success", now.Add(-2*time.Second))
	appendRecord(t, store, "user-2", "transition", "denied", now.Add(-time.Second))

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Requests      []requestResponse `json:"requests"`
		NextPageToken string            `json:"nextPageToken"`
		TotalSize     int               `json:"totalSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalSize)
	require.Len(t, resp.Requests, 2)
	assert.Equal(t, "transition", resp.Requests[0].Action)
}

func TestListRequestsHandlerFiltersByActor(t *testing.T) {
	store := setupAuditTestDB(t)
	router := Router(store, nil)

	now := time.Now()
	appendRecord(t, store, "user-1", "scan", "success", now)
	appendRecord(t, store, "user-2", "scan", "success", now)

	req := httptest.NewRequest(http.MethodGet, "/requests?actor=user-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Requests  []requestResponse `json:"requests"`
		TotalSize int               `json:"totalSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalSize)
	require.Len(t, resp.Requests, 1)
	assert.Equal(t, "user-1", resp.Requests[0].ActorID)
}

func TestGetRequestHandler(t *testing.T) {
	store := setupAuditTestDB(t)
	router := Router(store, nil)

	created := appendRecord(t, store, "user-1", "scan", "success", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/requests/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp requestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)

	req = httptest.NewRequest(http.MethodGet, "/requests/nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterAppliesGuard(t *testing.T) {
	store := setupAuditTestDB(t)

	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	router := Router(store, guard)

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// ListRequestsHandler handles GET /audit/requests.
// Query params: actor, action, outcome, itemRef, pageSize, pageToken
func ListRequestsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			ActorID: r.URL.Query().Get("actor"),
			Action:  r.URL.Query().Get("action"),
			Outcome: r.URL.Query().Get("outcome"),
			ItemRef: r.URL.Query().Get("itemRef"),
		}

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.List(filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit records: %v", err))
			return
		}

		requests := make([]requestResponse, len(records))
		for i, rec := range records {
			requests[i] = recordToResponse(rec)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"requests":      requests,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// GetRequestHandler handles GET /audit/requests/{recordId}.
func GetRequestHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID := chi.URLParam(r, "recordId")
		if recordID == "" {
			writeError(w, http.StatusBadRequest, "missing record ID")
			return
		}

		record, err := store.GetByID(recordID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get audit record: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("audit record %q not found", recordID))
			return
		}

		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

// requestResponse is the API shape of a request record.
type requestResponse struct {
	ID         string `json:"id"`
	RequestID  string `json:"requestId,omitempty"`
	ActorID    string `json:"actorId"`
	ActorName  string `json:"actorName,omitempty"`
	Role       string `json:"role,omitempty"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Action     string `json:"action"`
	ItemRef    string `json:"itemRef,omitempty"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"statusCode"`
	DurationMs int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

func recordToResponse(rec RequestRecord) requestResponse {
	return requestResponse{
		ID:         rec.ID,
		RequestID:  rec.RequestID,
		ActorID:    rec.ActorID,
		ActorName:  rec.ActorName,
		Role:       rec.Role,
		Method:     rec.Method,
		Path:       rec.Path,
		Action:     rec.Action,
		ItemRef:    rec.ItemRef,
		Outcome:    rec.Outcome,
		StatusCode: rec.StatusCode,
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

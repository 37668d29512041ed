package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// Middleware records mutating requests after they complete. The audit write
// is best-effort: a failed insert never fails the request it describes.
func Middleware(store *Store, cfg *Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil || !cfg.Enabled || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !isAuditedRequest(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(capture, r)

			outcome := outcomeFromStatus(capture.statusCode)
			if outcome == "denied" && !cfg.LogDenied {
				return
			}

			ctx := r.Context()

			actorID := "anonymous"
			actorName := ""
			role := ""
			if actor, ok := lifecycle.ActorFromContext(ctx); ok {
				actorID = actor.ID
				actorName = actor.Name
				role = string(actor.Role)
			}

			record := &RequestRecord{
				ID:         uuid.New().String(),
				RequestID:  middleware.GetReqID(ctx),
				ActorID:    actorID,
				ActorName:  actorName,
				Role:       role,
				Method:     r.Method,
				Path:       r.URL.Path,
				Action:     extractAction(r.Method, r.URL.Path),
				ItemRef:    extractItemRef(r.URL.Path),
				Outcome:    outcome,
				StatusCode: capture.statusCode,
				DurationMs: time.Since(startTime).Milliseconds(),
				CreatedAt:  startTime,
			}

			if err := store.Append(record); err != nil {
				logger.Error("failed to write audit record", "error", err, "requestID", record.RequestID)
			}
		})
	}
}

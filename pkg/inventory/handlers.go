package inventory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocktrail/stocktrail/pkg/cache"
	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// maxLabelLength bounds the human label accepted on item creation.
const maxLabelLength = 256

// itemResponse is the API representation of an item.
type itemResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// eventResponse is the API representation of a transition event.
type eventResponse struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"createdAt"`
}

func itemToResponse(item *Item) itemResponse {
	return itemResponse{
		ID:        item.ID,
		Label:     item.Label,
		Code:      item.Code,
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func eventToResponse(event *TransitionEvent) eventResponse {
	return eventResponse{
		ID:         event.ID,
		ItemID:     event.ItemID,
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		ActorID:    event.ActorID,
		Action:     event.Action,
		CreatedAt:  event.CreatedAt,
	}
}

// createItemRequest is the body of POST /items.
type createItemRequest struct {
	Label string `json:"label"`
}

// transitionRequest is the body of POST /items/{ref}/status.
type transitionRequest struct {
	Status string `json:"status"`
}

// scanRequest is the body of POST /scan: a scanned code plus the desired
// status. It normalizes to the same engine call as the direct status update.
type scanRequest struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

// createItemHandler returns a handler that registers a new item. Only admins
// and operators may create items.
func createItemHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		if actor.Role != lifecycle.RoleAdmin && actor.Role != lifecycle.RoleOperator {
			writeError(w, http.StatusForbidden, fmt.Sprintf("role %s may not create items", actor.Role))
			return
		}

		var req createItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Label == "" {
			writeError(w, http.StatusBadRequest, "label is required")
			return
		}
		if len(req.Label) > maxLabelLength {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("label exceeds %d characters", maxLabelLength))
			return
		}

		item, err := engine.Items().Create(req.Label)
		if err != nil {
			if err == ErrCodeConflict {
				writeError(w, http.StatusConflict, "derived item code already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to create item")
			return
		}

		writeJSON(w, http.StatusCreated, itemToResponse(item))
	}
}

// listItemsHandler returns a handler for the paginated item listing.
// Query params: status, q, pageSize, pageToken.
func listItemsHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(w, r); !ok {
			return
		}

		filter := ListFilter{
			Status: r.URL.Query().Get("status"),
			Query:  r.URL.Query().Get("q"),
		}
		if filter.Status != "" {
			if _, err := lifecycle.ParseStatus(filter.Status); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		items, nextToken, total, err := engine.Items().List(filter, queryPageSize(r), r.URL.Query().Get("pageToken"))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to list items: %v", err))
			return
		}

		responses := make([]itemResponse, len(items))
		for i := range items {
			responses[i] = itemToResponse(&items[i])
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"items":         responses,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// getItemHandler returns a handler that fetches one item by id or code.
func getItemHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(w, r); !ok {
			return
		}

		ref := chi.URLParam(r, "ref")
		item, err := engine.Items().Resolve(ref)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load item")
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no item matches %q", ref))
			return
		}

		writeJSON(w, http.StatusOK, itemToResponse(item))
	}
}

// updateStatusHandler returns a handler for the direct status update shape.
func updateStatusHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		status, err := lifecycle.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		executeTransition(w, engine, chi.URLParam(r, "ref"), status, actor)
	}
}

// scanHandler returns a handler for the scan entry shape.
func scanHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if !IsItemCode(req.Code) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("scanned value is not an item code (expected %s prefix)", CodePrefix))
			return
		}
		status, err := lifecycle.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		executeTransition(w, engine, req.Code, status, actor)
	}
}

// executeTransition runs the engine and writes the shared transition
// response. Both entry shapes funnel through here.
func executeTransition(w http.ResponseWriter, engine *Engine, ref string, status lifecycle.Status, actor lifecycle.Actor) {
	result, err := engine.Execute(ref, status, actor)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item":  itemToResponse(result.Item),
		"event": eventToResponse(result.Event),
	})
}

// historyHandler returns a handler for the paginated event history of an
// item, newest first.
func historyHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(w, r); !ok {
			return
		}

		item, events, nextToken, total, err := engine.History(chi.URLParam(r, "ref"), queryPageSize(r), r.URL.Query().Get("pageToken"))
		if err != nil {
			writeTransitionError(w, err)
			return
		}

		responses := make([]eventResponse, len(events))
		for i := range events {
			responses[i] = eventToResponse(&events[i])
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"item":          itemToResponse(item),
			"events":        responses,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// allowedTransitionsHandler returns a handler that reports which statuses the
// calling actor may move the item to next.
func allowedTransitionsHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}

		item, next, err := engine.AllowedNext(chi.URLParam(r, "ref"), actor)
		if err != nil {
			writeTransitionError(w, err)
			return
		}

		targets := make([]string, len(next))
		for i, s := range next {
			targets[i] = string(s)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"item":               itemToResponse(item),
			"role":               string(actor.Role),
			"allowedTransitions": targets,
		})
	}
}

// statsCacheKey is the single key under which the stats payload is cached.
const statsCacheKey = "stats"

// statsHandler returns a handler that reports per-status item counts. The
// marshaled payload is cached for the configured stats TTL, so dashboards
// polling this endpoint may see counts that lag writes by up to that long.
func statsHandler(engine *Engine, stats *cache.LRU) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(w, r); !ok {
			return
		}

		if body, ok := stats.Get(statsCacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}

		counts, err := engine.Items().StatusCounts()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to count items")
			return
		}

		statuses := make(map[string]int64, len(lifecycle.AllStatuses))
		var total int64
		for _, s := range lifecycle.AllStatuses {
			statuses[string(s)] = counts[s]
			total += counts[s]
		}

		body, err := json.Marshal(map[string]any{
			"totalItems": total,
			"byStatus":   statuses,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode stats")
			return
		}
		stats.Add(statsCacheKey, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// actorFrom returns the authenticated actor from the request context, or
// writes a 401 and reports false.
func actorFrom(w http.ResponseWriter, r *http.Request) (lifecycle.Actor, bool) {
	actor, ok := lifecycle.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return lifecycle.Actor{}, false
	}
	return actor, true
}

// queryPageSize parses the pageSize query parameter; the store applies its
// own default and cap.
func queryPageSize(r *http.Request) int {
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

// writeTransitionError maps an engine error onto its transport status code.
func writeTransitionError(w http.ResponseWriter, err error) {
	te, ok := lifecycle.AsTransitionError(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var status int
	switch te.Code {
	case lifecycle.CodeNotFound:
		status = http.StatusNotFound
	case lifecycle.CodeDuplicateTransition, lifecycle.CodeConflict:
		status = http.StatusConflict
	case lifecycle.CodeForbidden:
		status = http.StatusForbidden
	case lifecycle.CodeValidationFailed:
		status = http.StatusBadRequest
	default:
		// Storage failures surface as opaque server errors; the cause is
		// already logged by the engine.
		writeError(w, http.StatusInternalServerError, "storage operation failed")
		return
	}

	writeJSON(w, status, map[string]string{
		"error":   te.Code,
		"message": te.Message,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

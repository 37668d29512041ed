package inventory

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// maxExecuteAttempts bounds how many times Execute re-evaluates a transition
// after observing a concurrent status change before giving up with a
// conflict.
const maxExecuteAttempts = 3

// staleReadError reports that the in-transaction re-read observed a different
// status than the one the policy decision was made against. The caller
// restarts the decision with the fresh status.
type staleReadError struct {
	fresh lifecycle.Status
}

func (e *staleReadError) Error() string {
	return fmt.Sprintf("stale read: item is now %s", e.fresh)
}

// TransitionResult carries the outcome of a committed transition.
type TransitionResult struct {
	Item  *Item            `json:"item"`
	Event *TransitionEvent `json:"event"`
}

// Engine applies status transitions. It is the only component with
// business-rule authority: every mutation of an item's status flows through
// Execute, which evaluates the transition policy and commits the event append
// and the status update as one atomic unit of work. The engine holds no
// mutable state and is safe to share across concurrent requests.
type Engine struct {
	db     *gorm.DB
	items  *ItemStore
	events *EventLog
	logger *slog.Logger
}

// NewEngine creates an Engine on top of db.
func NewEngine(db *gorm.DB, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:     db,
		items:  NewItemStore(db),
		events: NewEventLog(db),
		logger: logger,
	}
}

// Items exposes the engine's item store for read paths.
func (e *Engine) Items() *ItemStore { return e.items }

// Events exposes the engine's event log for read paths.
func (e *Engine) Events() *EventLog { return e.events }

// Execute moves the item identified by ref (scannable code or raw id) to the
// requested status on behalf of actor. On success the updated item and the
// newly appended event are returned together; on failure the error is a
// *lifecycle.TransitionError describing the rejection.
//
// The policy decision and the write are always evaluated against the same
// status value: the item is re-read inside the unit of work, a stale read
// restarts the decision with the fresh status, and the final write is guarded
// on the status the decision used. Event append and status update commit or
// roll back together.
func (e *Engine) Execute(ref string, requested lifecycle.Status, actor lifecycle.Actor) (*TransitionResult, error) {
	if ref == "" {
		return nil, lifecycle.NewValidation("item reference is required")
	}
	if !requested.Valid() {
		return nil, lifecycle.NewValidation(fmt.Sprintf("unknown status %q", requested))
	}
	if !actor.Active {
		return nil, &lifecycle.TransitionError{
			Code:    lifecycle.CodeForbidden,
			Role:    actor.Role,
			Message: "actor is deactivated",
		}
	}

	item, err := e.items.Resolve(ref)
	if err != nil {
		return nil, e.storageFailure("resolve item", ref, err)
	}
	if item == nil {
		return nil, lifecycle.NewNotFound(ref)
	}

	current := item.Status
	for attempt := 0; attempt < maxExecuteAttempts; attempt++ {
		// Duplicate check precedes the policy table so it reports its own
		// error kind regardless of role.
		if requested == current {
			return nil, lifecycle.NewDuplicateTransition(current)
		}
		if te := lifecycle.ValidateTransition(actor.Role, current, requested); te != nil {
			return nil, te
		}

		result, err := e.tryTransition(item.ID, current, requested, actor)
		if err == nil {
			return result, nil
		}

		var stale *staleReadError
		switch {
		case errors.As(err, &stale):
			current = stale.fresh
		case errors.Is(err, ErrStatusConflict):
			// Raced inside the transaction boundary itself; re-read and
			// re-decide against whatever won.
			fresh, rerr := e.items.GetByID(item.ID)
			if rerr != nil {
				return nil, e.storageFailure("re-read item", ref, rerr)
			}
			if fresh == nil {
				return nil, lifecycle.NewNotFound(ref)
			}
			current = fresh.Status
		default:
			return nil, e.storageFailure("apply transition", ref, err)
		}
	}

	return nil, lifecycle.NewConflict(current, requested)
}

// tryTransition runs one atomic attempt: re-read the status inside the
// transaction, then append the event and apply the guarded status update.
// Any error rolls the whole transaction back, event included.
func (e *Engine) tryTransition(itemID string, expected, requested lifecycle.Status, actor lifecycle.Actor) (*TransitionResult, error) {
	var out TransitionResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		txItems := NewItemStore(tx)
		txEvents := NewEventLog(tx)

		item, err := txItems.GetByID(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item %s disappeared during transition", itemID)
		}
		if item.Status != expected {
			return &staleReadError{fresh: item.Status}
		}

		event, err := txEvents.Append(itemID, expected, requested, actor.ID, transitionAction(expected, requested))
		if err != nil {
			return err
		}

		updated, err := txItems.ConditionalUpdateStatus(itemID, expected, requested)
		if err != nil {
			return err
		}

		out.Item = updated
		out.Event = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the item and its paginated event history, newest first.
func (e *Engine) History(ref string, pageSize int, pageToken string) (*Item, []TransitionEvent, string, int, error) {
	item, err := e.items.Resolve(ref)
	if err != nil {
		return nil, nil, "", 0, e.storageFailure("resolve item", ref, err)
	}
	if item == nil {
		return nil, nil, "", 0, lifecycle.NewNotFound(ref)
	}

	events, nextToken, total, err := e.events.ListByItem(item.ID, pageSize, pageToken)
	if err != nil {
		return nil, nil, "", 0, e.storageFailure("list events", ref, err)
	}
	return item, events, nextToken, total, nil
}

// Chain returns the item and its full event chain, oldest first.
func (e *Engine) Chain(ref string) (*Item, []TransitionEvent, error) {
	item, err := e.items.Resolve(ref)
	if err != nil {
		return nil, nil, e.storageFailure("resolve item", ref, err)
	}
	if item == nil {
		return nil, nil, lifecycle.NewNotFound(ref)
	}

	chain, err := e.events.ChainForItem(item.ID)
	if err != nil {
		return nil, nil, e.storageFailure("load event chain", ref, err)
	}
	return item, chain, nil
}

// AllowedNext returns the item together with the statuses the actor's role
// may move it to from its current status.
func (e *Engine) AllowedNext(ref string, actor lifecycle.Actor) (*Item, []lifecycle.Status, error) {
	item, err := e.items.Resolve(ref)
	if err != nil {
		return nil, nil, e.storageFailure("resolve item", ref, err)
	}
	if item == nil {
		return nil, nil, lifecycle.NewNotFound(ref)
	}
	if !actor.Active {
		return item, nil, nil
	}
	return item, lifecycle.AllowedTransitions(actor.Role, item.Status), nil
}

// storageFailure logs the underlying error and wraps it so the boundary
// layer surfaces a server error without leaking storage details.
func (e *Engine) storageFailure(op, ref string, err error) *lifecycle.TransitionError {
	e.logger.Error("storage operation failed", "op", op, "ref", ref, "error", err)
	return lifecycle.NewStorageFailure(fmt.Errorf("%s: %w", op, err))
}

// transitionAction generates the free-text description recorded on an event.
func transitionAction(from, to lifecycle.Status) string {
	return fmt.Sprintf("status changed from %s to %s", from, to)
}

package lifecycle

// transitionTable maps (role, current status) to the statuses that role may
// move an item to. Roles or statuses absent from the table allow nothing, so
// unrecognized input is denied rather than treated as a fault. The table is
// compiled-in policy: it is initialized once and never mutated.
var transitionTable = map[Role]map[Status][]Status{
	RoleAdmin: {
		StatusCreated:    {StatusStored, StatusClosed},
		StatusStored:     {StatusVerified, StatusDispatched, StatusClosed},
		StatusVerified:   {StatusDispatched, StatusClosed},
		StatusDispatched: {StatusClosed},
	},
	RoleOperator: {
		StatusCreated:    {StatusStored},
		StatusStored:     {StatusDispatched},
		StatusVerified:   {StatusDispatched},
		StatusDispatched: {StatusClosed},
	},
	RoleInspector: {
		StatusStored: {StatusVerified},
	},
	RoleViewer: {},
}

// IsAllowed reports whether role may move an item from one status to another.
// Pure and deterministic; safe for unsynchronized concurrent callers.
func IsAllowed(role Role, from, to Status) bool {
	for _, target := range transitionTable[role][from] {
		if target == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the target statuses role may reach from the
// given status. Returns nil when the role has no outbound transitions.
// The result is a copy; callers may modify it freely.
func AllowedTransitions(role Role, from Status) []Status {
	targets := transitionTable[role][from]
	if len(targets) == 0 {
		return nil
	}
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// ValidateTransition checks whether role may move an item from one status to
// another. Returns nil if allowed, a forbidden TransitionError if not. The
// duplicate case (to == from) is deliberately not handled here; the engine
// checks it first so it reports a distinct error kind.
func ValidateTransition(role Role, from, to Status) *TransitionError {
	if IsAllowed(role, from, to) {
		return nil
	}
	return NewForbidden(role, from, to)
}

// Package lifecycle defines the item lifecycle: the closed status and role
// enumerations, the transition policy that decides which role may move an
// item between which statuses, and the structured errors the transition
// engine reports. The package is pure; it performs no I/O and all of its
// state is immutable after init, so everything here is safe for concurrent
// use without synchronization.
package lifecycle

import "fmt"

// Status represents an item's position in the warehouse lifecycle.
type Status string

const (
	StatusCreated    Status = "created"
	StatusStored     Status = "stored"
	StatusVerified   Status = "verified"
	StatusDispatched Status = "dispatched"
	StatusClosed     Status = "closed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusCreated,
	StatusStored,
	StatusVerified,
	StatusDispatched,
	StatusClosed,
}

// ParseStatus converts a raw string into a Status.
// Returns an error for anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCreated, StatusStored, StatusVerified, StatusDispatched, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// IsTerminal reports whether no role may move an item out of s.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// Role represents an actor's authority over item transitions.
type Role string

const (
	// RoleAdmin has full authority over every legal lifecycle edge.
	RoleAdmin Role = "admin"
	// RoleOperator covers day-to-day warehouse operations.
	RoleOperator Role = "operator"
	// RoleInspector performs quality control checks.
	RoleInspector Role = "inspector"
	// RoleViewer is read-only and may perform no transitions.
	RoleViewer Role = "viewer"
)

// AllRoles lists every role in decreasing order of authority.
var AllRoles = []Role{RoleAdmin, RoleOperator, RoleInspector, RoleViewer}

// ParseRole converts a raw string into a Role.
// Returns an error for anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleOperator, RoleInspector, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

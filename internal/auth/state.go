// Package auth owns the signed-in state of the dashboard. It is the only
// writer of the session record.
package auth

import "github.com/felixgeelhaar/stockwise/internal/session"

// State is the auth state machine position
type State int

const (
	// Unknown is the initial state, before the first store load completes
	Unknown State = iota
	// Anonymous means no session record exists
	Anonymous
	// Authenticated means a session record exists
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the machine
type Snapshot struct {
	State  State
	Record *session.Record
}

// IsLoading reports whether the first load has not completed yet
func (s Snapshot) IsLoading() bool {
	return s.State == Unknown
}

// Routes the machine navigates to
const (
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
)

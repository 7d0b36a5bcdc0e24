// Package guard gates protected routes on the auth state
package guard

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/stockwise/internal/auth"
)

// Outcome is what the guard does with a request
type Outcome int

const (
	// Placeholder renders a neutral loading page
	Placeholder Outcome = iota
	// Render lets the protected view render
	Render
	// Redirect sends the visitor to Decision.Target
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "placeholder"
	}
}

// Decision is the result of Decide
type Decision struct {
	Outcome Outcome
	Target  string
}

// Decide maps an auth snapshot to a render target. It has no state of its
// own and only looks at snap.
func Decide(snap auth.Snapshot) Decision {
	switch snap.State {
	case auth.Authenticated:
		return Decision{Outcome: Render}
	case auth.Anonymous:
		return Decision{Outcome: Redirect, Target: auth.RouteLogin}
	default:
		return Decision{Outcome: Placeholder}
	}
}

// Source provides the current auth snapshot
type Source interface {
	Current() auth.Snapshot
}

type contextKey struct{}

// SnapshotFrom returns the snapshot the guard admitted the request with
func SnapshotFrom(ctx context.Context) (auth.Snapshot, bool) {
	snap, ok := ctx.Value(contextKey{}).(auth.Snapshot)
	return snap, ok
}

// Require wraps next so it only runs for an authenticated session. While the
// state is still unknown, placeholder is served with 503 and Retry-After.
// A nil placeholder writes a plain text body.
func Require(source Source, placeholder http.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := source.Current()
		d := Decide(snap)

		switch d.Outcome {
		case Render:
			ctx := context.WithValue(r.Context(), contextKey{}, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		case Redirect:
			http.Redirect(w, r, d.Target, http.StatusSeeOther)
		default:
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Cache-Control", "no-store")
			if placeholder == nil {
				http.Error(w, "Loading...", http.StatusServiceUnavailable)
				return
			}
			placeholder.ServeHTTP(&statusWriter{ResponseWriter: w, status: http.StatusServiceUnavailable}, r)
		}
	})
}

// statusWriter forces the placeholder's status code
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(int) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(s.status)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(s.status)
	}
	return s.ResponseWriter.Write(b)
}

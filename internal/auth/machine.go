package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stockwise/internal/session"
)

var (
	// ErrAuthFailed is returned when login or signup cannot persist the record
	ErrAuthFailed = errors.New("authentication failed")
	// ErrInvalidProfile is returned when signup is missing required fields
	ErrInvalidProfile = errors.New("invalid profile")
)

// Store is the persistence the machine needs
type Store interface {
	Save(ctx context.Context, rec session.Record) error
	Load(ctx context.Context) (session.Record, bool)
	Clear(ctx context.Context) error
}

// Navigator performs the navigation side effect of a transition
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Machine is the auth state machine. Every transition mutates the store
// first, then the in-memory state, then navigates.
type Machine struct {
	mu     sync.RWMutex
	store  Store
	state  State
	record *session.Record
	logger *slog.Logger

	newID func() string
}

// NewMachine creates a machine in the Unknown state. Call Start before
// serving requests.
func NewMachine(store Store, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:  store,
		state:  Unknown,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Start rehydrates from the store. A stored record yields Authenticated,
// anything else Anonymous.
func (m *Machine) Start(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.store.Load(ctx); ok {
		m.state = Authenticated
		m.record = &rec
		m.logger.Info("session restored", "email", rec.Email, "shop", rec.ShopName)
	} else {
		m.state = Anonymous
		m.record = nil
	}
	return m.state
}

// Current returns a snapshot. The record in the snapshot is a copy.
func (m *Machine) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{State: m.state}
	if m.record != nil {
		rec := *m.record
		snap.Record = &rec
	}
	return snap
}

// Login signs in as a demo shop derived from email. The password is not
// verified: there is no account backend behind this dashboard.
func (m *Machine) Login(ctx context.Context, nav Navigator, email, password string) (session.Record, error) {
	rec := session.Record{
		ID:         "1",
		Email:      strings.TrimSpace(email),
		ShopName:   "Demo Shop",
		VendorName: "Demo Vendor",
		ShopType:   "Electronics",
		Location:   "Mumbai",
	}
	if err := m.authenticate(ctx, nav, rec); err != nil {
		return session.Record{}, fmt.Errorf("login: %w", err)
	}
	return rec, nil
}

// Signup signs in with the supplied profile and a fresh identifier
func (m *Machine) Signup(ctx context.Context, nav Navigator, p session.Profile) (session.Record, error) {
	rec := session.Record{
		ID:         m.newID(),
		Email:      strings.TrimSpace(p.Email),
		ShopName:   strings.TrimSpace(p.ShopName),
		VendorName: strings.TrimSpace(p.VendorName),
		ShopType:   strings.TrimSpace(p.ShopType),
		Location:   strings.TrimSpace(p.Location),
	}
	if rec.Email == "" || rec.ShopName == "" {
		return session.Record{}, fmt.Errorf("signup: %w: email and shop name are required", ErrInvalidProfile)
	}
	if err := m.authenticate(ctx, nav, rec); err != nil {
		return session.Record{}, fmt.Errorf("signup: %w", err)
	}
	return rec, nil
}

// Logout clears the session and navigates to the login route. It cannot
// fail from the caller's point of view; a store error is logged. It returns
// the record it signed out, and false when nobody was signed in.
func (m *Machine) Logout(ctx context.Context, nav Navigator) (session.Record, bool) {
	m.mu.Lock()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear session", "error", err)
	}
	prev := m.record
	m.state = Anonymous
	m.record = nil
	m.mu.Unlock()

	navigate(nav, RouteLogin)
	if prev == nil {
		return session.Record{}, false
	}
	return *prev, true
}

func (m *Machine) authenticate(ctx context.Context, nav Navigator, rec session.Record) error {
	m.mu.Lock()
	if err := m.store.Save(ctx, rec); err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to persist session", "email", rec.Email, "error", err)
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	m.state = Authenticated
	m.record = &rec
	m.mu.Unlock()

	m.logger.Info("signed in", "email", rec.Email, "shop", rec.ShopName)
	navigate(nav, RouteDashboard)
	return nil
}

func navigate(nav Navigator, route string) {
	if nav != nil {
		nav.Navigate(route)
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/felixgeelhaar/stockwise/internal/session"
	"github.com/felixgeelhaar/stockwise/internal/storage"
	"github.com/felixgeelhaar/stockwise/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures navigations together with the state seen at that moment
type recorder struct {
	m      *Machine
	routes []string
	states []State
}

func (r *recorder) Navigate(route string) {
	r.routes = append(r.routes, route)
	if r.m != nil {
		r.states = append(r.states, r.m.Current().State)
	}
}

type brokenKV struct{ err error }

func (b brokenKV) Get(context.Context, string) ([]byte, error) { return nil, storage.ErrNotFound }
func (b brokenKV) Put(context.Context, string, []byte) error { return b.err }
func (b brokenKV) Delete(context.Context, string) error { return b.err }

func newTestMachine(t *testing.T) (*Machine, *session.Store) {
	t.Helper()
	store := session.NewStore(memory.NewStore(), quietLogger())
	m := NewMachine(store, quietLogger())
	m.Start(context.Background())
	return m, store
}

func TestMachine_InitialStateIsUnknown(t *testing.T) {
	m := NewMachine(session.NewStore(memory.NewStore(), nil), quietLogger())

	snap := m.Current()
	if snap.State != Unknown {
		t.Errorf("State = %v, want unknown", snap.State)
	}
	if !snap.IsLoading() {
		t.Error("IsLoading() = false before Start")
	}
}

func TestMachine_StartEmpty(t *testing.T) {
	m, _ := newTestMachine(t)

	snap := m.Current()
	if snap.State != Anonymous {
		t.Errorf("State = %v, want anonymous", snap.State)
	}
	if snap.IsLoading() {
		t.Error("IsLoading() = true after Start")
	}
	if snap.Record != nil {
		t.Errorf("Record = %+v, want nil", snap.Record)
	}
}

func TestMachine_Rehydrate(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(memory.NewStore(), quietLogger())
	want := session.Record{
		ID:         "abc",
		Email:      "owner@shop.in",
		ShopName:   "Corner Store",
		VendorName: "Ravi",
		ShopType:   "Grocery",
		Location:   "Pune",
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m := NewMachine(store, quietLogger())
	if got := m.Start(ctx); got != Authenticated {
		t.Fatalf("Start() = %v, want authenticated", got)
	}
	snap := m.Current()
	if snap.Record == nil || *snap.Record != want {
		t.Errorf("Record = %+v, want %+v", snap.Record, want)
	}
}

func TestMachine_Login(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMachine(t)
	nav := &recorder{m: m}

	rec, err := m.Login(ctx, nav, "a@b.com", "x")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	stored, ok := store.Load(ctx)
	if !ok {
		t.Fatal("store is empty after Login")
	}
	if stored.Email != "a@b.com" {
		t.Errorf("stored email = %q, want a@b.com", stored.Email)
	}
	if stored != rec {
		t.Errorf("stored = %+v, returned = %+v", stored, rec)
	}
	want := session.Record{
		ID: "1", Email: "a@b.com", ShopName: "Demo Shop", VendorName: "Demo Vendor",
		ShopType: "Electronics", Location: "Mumbai",
	}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}

	if m.Current().State != Authenticated {
		t.Errorf("State = %v, want authenticated", m.Current().State)
	}
	if len(nav.routes) != 1 || nav.routes[0] != RouteDashboard {
		t.Errorf("routes = %v, want [%s]", nav.routes, RouteDashboard)
	}
	if nav.states[0] != Authenticated {
		t.Errorf("state at navigation = %v, want authenticated", nav.states[0])
	}
}

func TestMachine_LoginStoreFailure(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("disk full")
	m := NewMachine(session.NewStore(brokenKV{err: cause}, quietLogger()), quietLogger())
	m.Start(ctx)
	nav := &recorder{}

	_, err := m.Login(ctx, nav, "a@b.com", "x")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Login() error = %v, want ErrAuthFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Login() error = %v, want it to wrap the cause", err)
	}
	if m.Current().State != Anonymous {
		t.Errorf("State = %v, want anonymous", m.Current().State)
	}
	if len(nav.routes) != 0 {
		t.Errorf("navigated to %v after failure", nav.routes)
	}
}

func TestMachine_SignupRoundTrip(t *testing.T) {
	ctx := context.Background()
	profiles := []session.Profile{
		{Email: "a@b.com", Password: "pw", ShopName: "A", VendorName: "B", ShopType: "Retail", Location: "Delhi"},
		{Email: "x@y.z", ShopName: "Only Required"},
		{Email: "kirana@shop.in", Password: "secret", ShopName: "Kirana", VendorName: "Meena", ShopType: "Grocery", Location: "Chennai"},
	}

	for _, p := range profiles {
		t.Run(p.Email, func(t *testing.T) {
			m, store := newTestMachine(t)
			nav := &recorder{m: m}

			if _, err := m.Signup(ctx, nav, p); err != nil {
				t.Fatalf("Signup() error = %v", err)
			}
			got, ok := store.Load(ctx)
			if !ok {
				t.Fatal("store is empty after Signup")
			}
			if got.ID == "" {
				t.Error("ID is empty")
			}
			if got.Email != p.Email || got.ShopName != p.ShopName || got.VendorName != p.VendorName ||
				got.ShopType != p.ShopType || got.Location != p.Location {
				t.Errorf("stored %+v does not match profile %+v", got, p)
			}
			if len(nav.routes) != 1 || nav.routes[0] != RouteDashboard {
				t.Errorf("routes = %v", nav.routes)
			}
		})
	}
}

func TestMachine_SignupUniqueIDs(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec, err := m.Signup(ctx, nil, session.Profile{Email: fmt.Sprintf("u%d@b.com", i), ShopName: "S"})
		if err != nil {
			t.Fatalf("Signup() error = %v", err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestMachine_SignupInvalidProfile(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		profile session.Profile
	}{
		{"missing email", session.Profile{ShopName: "S"}},
		{"missing shop", session.Profile{Email: "a@b.com"}},
		{"blank email", session.Profile{Email: "   ", ShopName: "S"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestMachine(t)
			nav := &recorder{}

			_, err := m.Signup(ctx, nav, tt.profile)
			if !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("Signup() error = %v, want ErrInvalidProfile", err)
			}
			if _, ok := store.Load(ctx); ok {
				t.Error("store written for invalid profile")
			}
			if len(nav.routes) != 0 {
				t.Errorf("navigated to %v", nav.routes)
			}
		})
	}
}

func TestMachine_LogoutWithoutSession(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMachine(t)
	nav := &recorder{m: m}

	if _, ok := m.Logout(ctx, nav); ok {
		t.Error("Logout() reported a signed-out record without a session")
	}

	if _, ok := store.Load(ctx); ok {
		t.Error("store not empty after Logout")
	}
	if m.Current().State != Anonymous {
		t.Errorf("State = %v, want anonymous", m.Current().State)
	}
	if len(nav.routes) != 1 || nav.routes[0] != RouteLogin {
		t.Errorf("routes = %v, want [%s]", nav.routes, RouteLogin)
	}
}

func TestMachine_LogoutAfterLogin(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMachine(t)

	if _, err := m.Login(ctx, nil, "a@b.com", "x"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	nav := &recorder{m: m}
	prev, ok := m.Logout(ctx, nav)
	if !ok || prev.Email != "a@b.com" {
		t.Errorf("Logout() = %+v, %v, want the signed-in record", prev, ok)
	}

	if _, ok := store.Load(ctx); ok {
		t.Error("store not empty after Logout")
	}
	if nav.states[0] != Anonymous {
		t.Errorf("state at navigation = %v, want anonymous", nav.states[0])
	}
}

func TestMachine_LogoutStoreFailure(t *testing.T) {
	ctx := context.Background()
	m := NewMachine(session.NewStore(brokenKV{err: errors.New("io")}, quietLogger()), quietLogger())
	m.Start(ctx)
	nav := &recorder{}

	m.Logout(ctx, nav)

	if m.Current().State != Anonymous {
		t.Errorf("State = %v, want anonymous", m.Current().State)
	}
	if len(nav.routes) != 1 {
		t.Errorf("routes = %v", nav.routes)
	}
}

func TestMachine_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	if _, err := m.Login(ctx, nil, "a@b.com", "x"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	snap := m.Current()
	snap.Record.Email = "mutated@b.com"

	if got := m.Current().Record.Email; got != "a@b.com" {
		t.Errorf("Email = %q after mutating snapshot", got)
	}
}

func TestMachine_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMachine(t)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			if i%2 == 0 {
				_, _ = m.Login(ctx, nil, "a@b.com", "x")
			} else {
				m.Logout(ctx, nil)
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	_, stored := store.Load(ctx)
	authenticated := m.Current().State == Authenticated
	if stored != authenticated {
		t.Errorf("store present = %v, state authenticated = %v", stored, authenticated)
	}
}

func TestMachine_ConcurrentLogoutSignsOutOnce(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	if _, err := m.Login(ctx, nil, "a@b.com", "x"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	var signedOut atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.Logout(ctx, nil); ok {
				signedOut.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := signedOut.Load(); got != 1 {
		t.Errorf("%d logouts reported a record, want 1", got)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Unknown:       "unknown",
		Anonymous:     "anonymous",
		Authenticated: "authenticated",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}

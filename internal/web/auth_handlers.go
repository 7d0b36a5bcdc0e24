package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/stockwise/internal/auth"
	"github.com/felixgeelhaar/stockwise/internal/events"
	"github.com/felixgeelhaar/stockwise/internal/inventory"
	"github.com/felixgeelhaar/stockwise/internal/session"
)

// routeNavigator remembers where a transition wants to go. The handler
// redirects after the transition returns, so navigation stays the last step.
type routeNavigator struct {
	route string
}

func (n *routeNavigator) Navigate(route string) {
	n.route = route
}

func (n *routeNavigator) redirect(w http.ResponseWriter, r *http.Request) {
	if n.route == "" {
		return
	}
	http.Redirect(w, r, n.route, http.StatusSeeOther)
}

type loginForm struct {
	Email string
	Error string
}

type signupForm struct {
	Email      string
	ShopName   string
	VendorName string
	ShopType   string
	Location   string
	Error      string
}

func (h *Handler) redirectIfSignedIn(w http.ResponseWriter, r *http.Request) bool {
	if h.machine.Current().State == auth.Authenticated {
		http.Redirect(w, r, auth.RouteDashboard, http.StatusSeeOther)
		return true
	}
	return false
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfSignedIn(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "login", page{Title: "Sign in", Data: loginForm{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login", page{Title: "Sign in", Data: loginForm{Error: "Invalid form submission"}})
		return
	}
	form := loginForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	password := r.PostFormValue("password")
	if form.Email == "" || password == "" {
		form.Error = "Email and password are required"
		h.render(w, r, http.StatusUnprocessableEntity, "login", page{Title: "Sign in", Data: form})
		return
	}

	nav := &routeNavigator{}
	rec, err := h.machine.Login(r.Context(), nav, form.Email, password)
	if err != nil {
		h.logger.Error("login failed", "email", form.Email, "error", err)
		form.Error = "Login failed. Please try again."
		h.render(w, r, http.StatusInternalServerError, "login", page{Title: "Sign in", Data: form})
		return
	}

	h.signedIn(w, r, nav, rec, "Login successful!")
}

func (h *Handler) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfSignedIn(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "signup", page{Title: "Sign up", Data: signupForm{}})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "signup", page{Title: "Sign up", Data: signupForm{Error: "Invalid form submission"}})
		return
	}
	profile := session.Profile{
		Email:      r.PostFormValue("email"),
		Password:   r.PostFormValue("password"),
		ShopName:   r.PostFormValue("shopname"),
		VendorName: r.PostFormValue("vendorname"),
		ShopType:   r.PostFormValue("type_of_shop"),
		Location:   r.PostFormValue("location"),
	}
	form := signupForm{
		Email:      strings.TrimSpace(profile.Email),
		ShopName:   strings.TrimSpace(profile.ShopName),
		VendorName: strings.TrimSpace(profile.VendorName),
		ShopType:   strings.TrimSpace(profile.ShopType),
		Location:   strings.TrimSpace(profile.Location),
	}
	if profile.Password == "" {
		form.Error = "Password is required"
		h.render(w, r, http.StatusUnprocessableEntity, "signup", page{Title: "Sign up", Data: form})
		return
	}

	nav := &routeNavigator{}
	rec, err := h.machine.Signup(r.Context(), nav, profile)
	switch {
	case errors.Is(err, auth.ErrInvalidProfile):
		form.Error = "Email and shop name are required"
		h.render(w, r, http.StatusUnprocessableEntity, "signup", page{Title: "Sign up", Data: form})
		return
	case err != nil:
		h.logger.Error("signup failed", "email", form.Email, "error", err)
		form.Error = "Signup failed. Please try again."
		h.render(w, r, http.StatusInternalServerError, "signup", page{Title: "Sign up", Data: form})
		return
	}

	h.signedIn(w, r, nav, rec, "Account created successfully!")
}

func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request, nav *routeNavigator, rec session.Record, message string) {
	h.feed.Record(inventory.KindSession, "Signed in as "+rec.Email)
	h.emit(r, events.TypeSessionStarted, map[string]string{"id": rec.ID, "email": rec.Email, "shopname": rec.ShopName})
	setFlash(w, noticeSuccess, message)
	nav.redirect(w, r)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	nav := &routeNavigator{}
	if prev, ok := h.machine.Logout(r.Context(), nav); ok {
		h.feed.Record(inventory.KindSession, "Signed out "+prev.Email)
		h.emit(r, events.TypeSessionEnded, map[string]string{"id": prev.ID, "email": prev.Email})
	}
	setFlash(w, noticeSuccess, "Logged out successfully")
	nav.redirect(w, r)
}

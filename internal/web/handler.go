// Package web serves the dashboard pages
package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/felixgeelhaar/stockwise/internal/auth"
	"github.com/felixgeelhaar/stockwise/internal/events"
	"github.com/felixgeelhaar/stockwise/internal/guard"
	"github.com/felixgeelhaar/stockwise/internal/inventory"
	"github.com/felixgeelhaar/stockwise/internal/predict"
)

// Config holds the dependencies of the page handlers
type Config struct {
	Machine   *auth.Machine
	Catalog   *inventory.Catalog
	Predict   *predict.Service
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Handler serves every page of the dashboard
type Handler struct {
	machine   *auth.Machine
	catalog   *inventory.Catalog
	feed      *inventory.Feed
	predict   *predict.Service
	publisher events.Publisher
	renderer  *Renderer
	logger    *slog.Logger

	mu        sync.Mutex
	assistant assistantState
}

// assistantState is what the assistant page shows: the last submitted form
// values and the last answer of each panel
type assistantState struct {
	FraudForm    predict.FraudRequest
	SupplierForm predict.SupplierRequest
	ForecastForm predict.ForecastRequest

	Fraud    *predict.Result[predict.FraudResult]
	Supplier *predict.Result[predict.SupplierResult]
	Forecast *predict.Result[predict.ForecastResult]
}

// New creates the page handlers
func New(cfg Config) (*Handler, error) {
	if cfg.Machine == nil || cfg.Catalog == nil || cfg.Predict == nil {
		return nil, errors.New("web: machine, catalog and predict are required")
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		machine:   cfg.Machine,
		catalog:   cfg.Catalog,
		feed:      cfg.Catalog.Feed(),
		predict:   cfg.Predict,
		publisher: cfg.Publisher,
		renderer:  renderer,
		logger:    logger,
		assistant: assistantState{
			FraudForm:    predict.DefaultFraudRequest(),
			SupplierForm: predict.DefaultSupplierRequest(),
			ForecastForm: predict.DefaultForecastRequest(),
		},
	}, nil
}

// Register adds the page routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	// Public
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /login", h.handleLoginForm)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("GET /signup", h.handleSignupForm)
	mux.HandleFunc("POST /signup", h.handleSignup)
	mux.HandleFunc("POST /logout", h.handleLogout)

	// Protected
	mux.Handle("GET /dashboard", h.protect(h.handleDashboard))
	mux.Handle("GET /products", h.protect(h.handleProducts))
	mux.Handle("POST /products", h.protect(h.handleAddProduct))
	mux.Handle("POST /products/{id}", h.protect(h.handleUpdateProduct))
	mux.Handle("POST /products/{id}/delete", h.protect(h.handleDeleteProduct))
	mux.Handle("POST /products/{id}/deduct", h.protect(h.handleDeductProduct))
	mux.Handle("GET /ai-assistant", h.protect(h.handleAssistant))
	mux.Handle("POST /ai-assistant/fraud", h.protect(h.handleFraud))
	mux.Handle("POST /ai-assistant/supplier", h.protect(h.handleSupplier))
	mux.Handle("POST /ai-assistant/forecast", h.protect(h.handleForecast))
	mux.Handle("GET /procurement", h.protect(h.handleProcurement))

	// Catch-all
	mux.HandleFunc("/", h.handleNotFound)
}

func (h *Handler) protect(next http.HandlerFunc) http.Handler {
	return guard.Require(h.machine, http.HandlerFunc(h.handleLoading), next)
}

// render writes a page, falling back to a plain error if the template fails
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Notices = append(popFlash(w, r), p.Notices...)
	if p.Shop == nil {
		if snap, ok := guard.SnapshotFrom(r.Context()); ok {
			p.Shop = snap.Record
		}
	}
	if err := h.renderer.Render(w, status, name, p); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleLoading(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusServiceUnavailable, "loading", page{Title: "Loading"})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("404: route not found", "path", r.URL.Path)
	h.render(w, r, http.StatusNotFound, "not_found", page{Title: "Not Found"})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index", page{Title: "Welcome"})
}

// emit publishes an event and logs a failure
func (h *Handler) emit(r *http.Request, eventType string, payload any) {
	if err := events.Emit(r.Context(), h.publisher, eventType, payload); err != nil {
		h.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

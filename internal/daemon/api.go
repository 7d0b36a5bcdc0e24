package daemon

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/auth"
	"github.com/felixgeelhaar/stockwise/internal/inventory"
	"github.com/felixgeelhaar/stockwise/internal/predict"
)

// StatusResponse is the body of GET /v1/status
type StatusResponse struct {
	Status        string             `json:"status"`
	Version       string             `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	AuthState     string             `json:"auth_state"`
	Storage       string             `json:"storage"`
	Events        string             `json:"events"`
	DemoFallback  bool               `json:"demo_fallback"`
	Services      []predict.Endpoint `json:"services"`
	Inventory     inventory.Stats    `json:"inventory"`
}

// ProductView is a product as the JSON API returns it
type ProductView struct {
	inventory.Product
	LowStock bool `json:"low_stock"`
}

func productView(p inventory.Product) ProductView {
	return ProductView{Product: p, LowStock: p.LowStock()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "running",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		AuthState:     s.machine.Current().State.String(),
		Storage:       s.storage.Backend,
		Events:        s.eventsTo,
		DemoFallback:  s.predict.DemoFallback(),
		Services:      s.predict.Endpoints(),
		Inventory:     s.catalog.Stats(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap := s.machine.Current()
	if snap.State != auth.Authenticated || snap.Record == nil {
		s.unauthorized(w, r)
		return
	}
	writeJSON(w, http.StatusOK, snap.Record)
}

// requireSession answers 401 unless a shop is signed in
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.machine.Current().State != auth.Authenticated {
			s.unauthorized(w, r)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products := s.catalog.List()
	if lowOnly, _ := strconv.ParseBool(r.URL.Query().Get("low_stock")); lowOnly {
		products = s.catalog.LowStock()
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":  views,
		"threshold": inventory.LowStockThreshold,
	})
}

func (s *Server) handleDeductProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(w, r, "product id must be a positive integer")
		return
	}

	p, err := s.catalog.Deduct(r.Context(), id)
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		s.notFound(w, r, "product")
	case errors.Is(err, inventory.ErrNoStock):
		s.conflict(w, r, inventory.ErrNoStock.Error())
	case err != nil:
		s.internalError(w, r, "failed to deduct stock", err)
	default:
		writeJSON(w, http.StatusOK, productView(p))
	}
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	n := inventory.FeedSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.badRequest(w, r, "limit must be a positive integer")
			return
		}
		n = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": s.catalog.Feed().Recent(n),
	})
}

package predict

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastResilience keeps retries and rate limits out of the way of tests
func fastResilience() ResilienceConfig {
	cfg := DefaultResilienceConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RatePerSecond = 1000
	return cfg
}

func newTestService(t *testing.T, url string, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FraudURL = url
	cfg.SupplierURL = url
	cfg.ForecastURL = url
	cfg.ProcurementURL = url
	cfg.Timeout = 2 * time.Second
	cfg.Resilience = fastResilience()
	cfg.Logger = quietLogger()
	if mutate != nil {
		mutate(&cfg)
	}
	s := NewService(cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestCheckFraud_SendsWireFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/items/fraud_detection" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, map[string]bool{"is_fraud": true})
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	res, err := s.CheckFraud(context.Background(), DefaultFraudRequest())
	if err != nil {
		t.Fatalf("CheckFraud() error = %v", err)
	}
	if !res.Value.IsFraud || res.Demo {
		t.Errorf("result = %+v, want fraud without demo", res)
	}

	want := map[string]any{
		"order_count":        float64(10),
		"return_rate":        0.1,
		"account_age_months": float64(12),
		"payment_delay_days": float64(1),
		"complaint_count":    float64(0),
		"delivery_time_days": float64(2),
		"rating":             4.0,
		"category":           "Electronics",
	}
	if len(got) != len(want) {
		t.Errorf("body has %d keys, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("body[%q] = %v, want %v", k, got[k], v)
		}
	}
}

func TestRecommendSupplier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/best_supplier" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, map[string]any{"best_supplier": map[string]any{
			"supplier_name": "Acme", "rating": 4.8, "category": "Electronics", "avg_order_value": 999.5,
		}})
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	res, err := s.RecommendSupplier(context.Background(), DefaultSupplierRequest())
	if err != nil {
		t.Fatalf("RecommendSupplier() error = %v", err)
	}
	if res.Value.BestSupplier == nil || res.Value.BestSupplier.SupplierName != "Acme" {
		t.Fatalf("result = %+v", res.Value)
	}
	if res.Value.BestSupplier.AvgOrderValue != 999.5 {
		t.Errorf("AvgOrderValue = %v", res.Value.BestSupplier.AvgOrderValue)
	}
}

func TestForecastSales(t *testing.T) {
	var got ForecastRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, map[string]float64{"predicted_sales": 51234.5})
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	res, err := s.ForecastSales(context.Background(), DefaultForecastRequest())
	if err != nil {
		t.Fatalf("ForecastSales() error = %v", err)
	}
	if res.Value.PredictedSales != 51234.5 {
		t.Errorf("PredictedSales = %v", res.Value.PredictedSales)
	}
	if got != DefaultForecastRequest() {
		t.Errorf("server got %+v", got)
	}
}

func TestCall_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	_, err := s.CheckFraud(context.Background(), DefaultFraudRequest())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
	if code := StatusCode(err); code != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode() = %d, want 422", code)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestCall_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]bool{"is_fraud": false})
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	if _, err := s.CheckFraud(context.Background(), DefaultFraudRequest()); err != nil {
		t.Fatalf("CheckFraud() error = %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestCall_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, func(cfg *Config) {
		cfg.Resilience.EnableRetry = false
	})
	ctx := context.Background()

	for i := 0; i < breakerThreshold+2; i++ {
		_, err := s.ForecastSales(ctx, DefaultForecastRequest())
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("call %d error = %v, want ErrNetwork", i, err)
		}
	}
	if n := calls.Load(); n != breakerThreshold {
		t.Errorf("server saw %d calls, want %d", n, breakerThreshold)
	}
}

func TestCall_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	_, err := s.LowStockForecast(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode() = %d, want 0", StatusCode(err))
	}
}

func TestCall_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := newTestService(t, url, nil)
	_, err := s.BestSupplierForLowStock(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
}

func TestDemoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	ctx := context.Background()

	t.Run("off", func(t *testing.T) {
		s := newTestService(t, srv.URL, nil)
		res, err := s.RecommendSupplier(ctx, DefaultSupplierRequest())
		if err == nil {
			t.Fatal("expected error")
		}
		if res.Demo || res.Value.BestSupplier != nil {
			t.Errorf("result = %+v, want empty", res)
		}
	})

	t.Run("on", func(t *testing.T) {
		s := newTestService(t, srv.URL, func(cfg *Config) { cfg.DemoFallback = true })
		res, err := s.RecommendSupplier(ctx, DefaultSupplierRequest())
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
		if !res.Demo {
			t.Error("Demo = false")
		}
		if res.Value.BestSupplier == nil || res.Value.BestSupplier.SupplierName != "Kiran Industries" {
			t.Errorf("result = %+v", res.Value)
		}
	})
}

func TestProcurement_PanelsIndependent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /low_stock_alert", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"low_stock_items": []map[string]any{
			{"item_name": "Keyboard Mechanical", "current_stock": 8, "reorder_level": 10},
		}})
	})
	mux.HandleFunc("GET /low_stock_forecast", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model", http.StatusNotFound)
	})
	mux.HandleFunc("GET /best_supplier_for_low_stock", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"supplier_name": "Tech Suppliers", "category": "Electronics",
			"rating": 4.1, "avg_order_value": 1200.0, "fraud_status": "Non-Fraud",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestService(t, srv.URL, nil)
	report := s.Procurement(context.Background())

	if report.LowStock.Err != nil {
		t.Errorf("LowStock error = %v", report.LowStock.Err)
	}
	if items := report.LowStock.Value.Items; len(items) != 1 || items[0].ItemName != "Keyboard Mechanical" {
		t.Errorf("LowStock items = %+v", items)
	}
	if !errors.Is(report.Forecast.Err, ErrNetwork) {
		t.Errorf("Forecast error = %v, want ErrNetwork", report.Forecast.Err)
	}
	if report.Forecast.Available() {
		t.Error("Forecast.Available() = true without fallback")
	}
	if report.Supplier.Err != nil || report.Supplier.Value.SupplierName != "Tech Suppliers" {
		t.Errorf("Supplier = %+v, err = %v", report.Supplier.Value, report.Supplier.Err)
	}
}

func TestProcurement_DemoFallbackEveryPanel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newTestService(t, srv.URL, func(cfg *Config) { cfg.DemoFallback = true })
	report := s.Procurement(context.Background())

	if !report.LowStock.Demo || len(report.LowStock.Value.Items) != 2 {
		t.Errorf("LowStock = %+v", report.LowStock)
	}
	if !report.Forecast.Demo || report.Forecast.Value.PredictedDemand != 250 {
		t.Errorf("Forecast = %+v", report.Forecast)
	}
	if !report.Supplier.Demo || report.Supplier.Value.FraudStatus != "Non-Fraud" {
		t.Errorf("Supplier = %+v", report.Supplier)
	}
	for name, ok := range map[string]bool{
		"low stock": report.LowStock.Available(),
		"forecast":  report.Forecast.Available(),
		"supplier":  report.Supplier.Available(),
	} {
		if !ok {
			t.Errorf("%s panel not available", name)
		}
	}
}

func TestService_Endpoints(t *testing.T) {
	s := NewService(Config{Logger: quietLogger()})
	defer s.Close()

	want := map[string]string{
		"fraud":       DefaultFraudURL,
		"supplier":    DefaultSupplierURL,
		"forecast":    DefaultForecastURL,
		"procurement": DefaultProcurementURL,
	}
	eps := s.Endpoints()
	if len(eps) != len(want) {
		t.Fatalf("got %d endpoints", len(eps))
	}
	for _, ep := range eps {
		if want[ep.Name] != ep.URL {
			t.Errorf("%s = %q, want %q", ep.Name, ep.URL, want[ep.Name])
		}
	}
	if s.DemoFallback() {
		t.Error("DemoFallback() = true by default")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("status 500"), false},
		{&StatusError{Code: 429}, true},
		{&StatusError{Code: 500}, true},
		{&StatusError{Code: 502}, true},
		{&StatusError{Code: 503}, true},
		{&StatusError{Code: 504}, true},
		{&StatusError{Code: 400}, false},
		{&StatusError{Code: 404}, false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStatusError_Error(t *testing.T) {
	if got := (&StatusError{Code: 503}).Error(); got != "status 503" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&StatusError{Code: 400, Body: "bad"}).Error(); got != "status 400: bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewServiceHTTPClient(t *testing.T) {
	if c := newServiceHTTPClient(0); c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c := newServiceHTTPClient(3 * time.Second); c.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", c.Timeout)
	}
}

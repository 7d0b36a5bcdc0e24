package predict

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Default service addresses
const (
	DefaultFraudURL       = "http://127.0.0.1:8005"
	DefaultSupplierURL    = "http://127.0.0.1:8001"
	DefaultForecastURL    = "http://127.0.0.1:8003"
	DefaultProcurementURL = "http://127.0.0.1:8001"
)

// Service endpoints
const (
	pathFraud            = "/items/fraud_detection"
	pathBestSupplier     = "/best_supplier"
	pathPredictYear      = "/predict_year"
	pathLowStockAlert    = "/low_stock_alert"
	pathLowStockForecast = "/low_stock_forecast"
	pathLowStockSupplier = "/best_supplier_for_low_stock"
)

// Config configures the prediction service set
type Config struct {
	FraudURL       string
	SupplierURL    string
	ForecastURL    string
	ProcurementURL string

	// Timeout bounds each HTTP attempt
	Timeout time.Duration

	// DemoFallback substitutes demo data when a call fails. The failure is
	// still reported to the caller.
	DemoFallback bool

	Resilience ResilienceConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DefaultConfig returns the local default addresses with demo data off
func DefaultConfig() Config {
	return Config{
		FraudURL:       DefaultFraudURL,
		SupplierURL:    DefaultSupplierURL,
		ForecastURL:    DefaultForecastURL,
		ProcurementURL: DefaultProcurementURL,
		Timeout:        DefaultTimeout,
		Resilience:     DefaultResilienceConfig(),
	}
}

// Result is a service answer. Demo is set when Value is demo data
// substituted for a failed call.
type Result[T any] struct {
	Value T
	Demo  bool
}

// Panel is one independently loaded part of a page
type Panel[T any] struct {
	Result[T]
	Err error
}

// Available reports whether the panel has something to show
func (p Panel[T]) Available() bool {
	return p.Err == nil || p.Demo
}

// ProcurementReport holds the three procurement panels
type ProcurementReport struct {
	LowStock Panel[LowStockAlert]
	Forecast Panel[DemandForecast]
	Supplier Panel[LowStockSupplier]
}

// Endpoint names a configured service address
type Endpoint struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Service is the set of prediction clients plus the fallback policy
type Service struct {
	fraud        *Client
	supplier     *Client
	forecast     *Client
	procurement  *Client
	demoFallback bool
	logger       *slog.Logger
}

// NewService creates clients for every configured service
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := func(name, url string) *Client {
		return NewClient(name, ClientConfig{
			BaseURL:    url,
			Timeout:    cfg.Timeout,
			Resilience: cfg.Resilience,
			HTTPClient: cfg.HTTPClient,
			Logger:     logger,
		})
	}

	return &Service{
		fraud:        client("fraud", orDefault(cfg.FraudURL, DefaultFraudURL)),
		supplier:     client("supplier", orDefault(cfg.SupplierURL, DefaultSupplierURL)),
		forecast:     client("forecast", orDefault(cfg.ForecastURL, DefaultForecastURL)),
		procurement:  client("procurement", orDefault(cfg.ProcurementURL, DefaultProcurementURL)),
		demoFallback: cfg.DemoFallback,
		logger:       logger,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// DemoFallback reports whether failed calls are replaced with demo data
func (s *Service) DemoFallback() bool {
	return s.demoFallback
}

// Endpoints lists the configured service addresses
func (s *Service) Endpoints() []Endpoint {
	return []Endpoint{
		{Name: s.fraud.Name(), URL: s.fraud.BaseURL()},
		{Name: s.supplier.Name(), URL: s.supplier.BaseURL()},
		{Name: s.forecast.Name(), URL: s.forecast.BaseURL()},
		{Name: s.procurement.Name(), URL: s.procurement.BaseURL()},
	}
}

// CheckFraud asks whether an account looks fraudulent
func (s *Service) CheckFraud(ctx context.Context, req FraudRequest) (Result[FraudResult], error) {
	var out FraudResult
	err := s.fraud.postJSON(ctx, pathFraud, req, &out)
	return settle(s, "fraud", out, err, demoFraud)
}

// RecommendSupplier asks for the best supplier for a profile
func (s *Service) RecommendSupplier(ctx context.Context, req SupplierRequest) (Result[SupplierResult], error) {
	var out SupplierResult
	err := s.supplier.postJSON(ctx, pathBestSupplier, req, &out)
	return settle(s, "supplier", out, err, demoSupplier)
}

// ForecastSales asks for the predicted yearly sales
func (s *Service) ForecastSales(ctx context.Context, req ForecastRequest) (Result[ForecastResult], error) {
	var out ForecastResult
	err := s.forecast.postJSON(ctx, pathPredictYear, req, &out)
	return settle(s, "forecast", out, err, demoForecast)
}

// LowStock fetches the low stock alert
func (s *Service) LowStock(ctx context.Context) (Result[LowStockAlert], error) {
	var out LowStockAlert
	err := s.procurement.getJSON(ctx, pathLowStockAlert, &out)
	return settle(s, "low_stock", out, err, demoLowStock)
}

// LowStockForecast fetches the demand forecast for low stock items
func (s *Service) LowStockForecast(ctx context.Context) (Result[DemandForecast], error) {
	var out DemandForecast
	err := s.procurement.getJSON(ctx, pathLowStockForecast, &out)
	return settle(s, "low_stock_forecast", out, err, demoDemandForecast)
}

// BestSupplierForLowStock fetches the supplier to restock from
func (s *Service) BestSupplierForLowStock(ctx context.Context) (Result[LowStockSupplier], error) {
	var out LowStockSupplier
	err := s.procurement.getJSON(ctx, pathLowStockSupplier, &out)
	return settle(s, "low_stock_supplier", out, err, demoLowStockSupplier)
}

// Procurement loads the three procurement panels concurrently. A failing
// panel does not affect the others.
func (s *Service) Procurement(ctx context.Context) ProcurementReport {
	var report ProcurementReport
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		report.LowStock.Result, report.LowStock.Err = s.LowStock(ctx)
	}()
	go func() {
		defer wg.Done()
		report.Forecast.Result, report.Forecast.Err = s.LowStockForecast(ctx)
	}()
	go func() {
		defer wg.Done()
		report.Supplier.Result, report.Supplier.Err = s.BestSupplierForLowStock(ctx)
	}()

	wg.Wait()
	return report
}

// Close releases every client
func (s *Service) Close() error {
	return errors.Join(
		s.fraud.Close(),
		s.supplier.Close(),
		s.forecast.Close(),
		s.procurement.Close(),
	)
}

// settle applies the fallback policy to a finished call
func settle[T any](s *Service, call string, v T, err error, demo func() T) (Result[T], error) {
	if err == nil {
		return Result[T]{Value: v}, nil
	}
	if s.demoFallback {
		s.logger.Info("serving demo data", "call", call)
		return Result[T]{Value: demo(), Demo: true}, err
	}
	return Result[T]{}, err
}

// Package mcp exposes the shop's inventory and the prediction services as
// MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/stockwise/internal/inventory"
	"github.com/felixgeelhaar/stockwise/internal/predict"
	"github.com/felixgeelhaar/stockwise/internal/session"
)

// ErrNotConfigured is returned by tools whose backing service is missing
var ErrNotConfigured = errors.New("not configured")

// Inventory is the product catalogue the tools read and update
type Inventory interface {
	List(ctx context.Context) ([]inventory.Product, error)
	LowStock(ctx context.Context) ([]inventory.Product, error)
	Deduct(ctx context.Context, id int64) (inventory.Product, error)
}

// Sessions reads the signed-in shop
type Sessions interface {
	Load(ctx context.Context) (session.Record, bool)
}

// Server wraps the MCP server with Stockwise functionality
type Server struct {
	mcpServer *server.Server
	inventory Inventory
	sessions  Sessions
	predict   *predict.Service
}

// Config contains configuration for the MCP server
type Config struct {
	Inventory Inventory
	Sessions  Sessions
	Predict   *predict.Service
	Version   string
}

// NewServer creates a new MCP server for Stockwise
func NewServer(cfg Config) *Server {
	s := &Server{
		inventory: cfg.Inventory,
		sessions:  cfg.Sessions,
		predict:   cfg.Predict,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "stockwise",
		Version: version,
	}, server.WithInstructions(`
Stockwise is an inventory dashboard for small shops.

Available tools:
- stockwise_session: Show the signed-in shop
- stockwise_products: List products, optionally only those low on stock
- stockwise_deduct: Record the sale of one unit of a product
- stockwise_fraud_check: Check a supplier profile for fraud
- stockwise_best_supplier: Recommend a supplier for a category
- stockwise_forecast: Forecast sales for a date
- stockwise_procurement: Low stock alerts, demand forecast and best supplier

Products with fewer than 10 units are low on stock.
Prediction results marked demo are placeholders shown while a service is down.
`))

	s.registerTools()

	return s
}

// registerTools registers all Stockwise MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("stockwise_session").
		Description("Show the shop that is signed in to the dashboard.").
		Handler(s.handleSession)

	s.mcpServer.Tool("stockwise_products").
		Description("List catalogue products with stock levels. Set low_stock_only to see restocking candidates.").
		Handler(s.handleProducts)

	s.mcpServer.Tool("stockwise_deduct").
		Description("Deduct one unit of stock from a product, as after a sale.").
		Handler(s.handleDeduct)

	s.mcpServer.Tool("stockwise_fraud_check").
		Description("Check a supplier profile with the fraud detection model. Omitted fields use the dashboard defaults.").
		Handler(s.handleFraud)

	s.mcpServer.Tool("stockwise_best_supplier").
		Description("Recommend the best supplier for an order profile. Omitted fields use the dashboard defaults.").
		Handler(s.handleSupplier)

	s.mcpServer.Tool("stockwise_forecast").
		Description("Forecast sales for a date with the yearly sales model.").
		Handler(s.handleForecast)

	s.mcpServer.Tool("stockwise_procurement").
		Description("Fetch low stock alerts, the demand forecast and the best supplier for restocking.").
		Handler(s.handleProcurement)
}

// Input/Output types for tools

type SessionInput struct{}

type SessionOutput struct {
	SignedIn   bool   `json:"signed_in"`
	Email      string `json:"email,omitempty"`
	ShopName   string `json:"shop_name,omitempty"`
	VendorName string `json:"vendor_name,omitempty"`
	ShopType   string `json:"shop_type,omitempty"`
	Location   string `json:"location,omitempty"`
}

type ProductsInput struct {
	LowStockOnly bool `json:"low_stock_only,omitempty" jsonschema:"description=Only list products below the low stock threshold"`
}

type ProductOutput struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Supplier string  `json:"supplier,omitempty"`
	LowStock bool    `json:"low_stock"`
}

type ProductsOutput struct {
	Products  []ProductOutput `json:"products"`
	Threshold int             `json:"threshold"`
	Summary   string          `json:"summary"`
}

type DeductInput struct {
	ProductID int64 `json:"product_id" jsonschema:"description=ID of the product that was sold"`
}

type DeductOutput struct {
	Product ProductOutput `json:"product"`
	Message string        `json:"message"`
}

type FraudInput struct {
	OrderCount       *int     `json:"order_count,omitempty" jsonschema:"description=Orders placed with the supplier"`
	ReturnRate       *float64 `json:"return_rate,omitempty" jsonschema:"description=Share of orders returned (0-1)"`
	AccountAgeMonths *int     `json:"account_age_months,omitempty" jsonschema:"description=Supplier account age in months"`
	PaymentDelayDays *int     `json:"payment_delay_days,omitempty" jsonschema:"description=Average payment delay in days"`
	ComplaintCount   *int     `json:"complaint_count,omitempty" jsonschema:"description=Complaints filed"`
	DeliveryTimeDays *int     `json:"delivery_time_days,omitempty" jsonschema:"description=Average delivery time in days"`
	Rating           *float64 `json:"rating,omitempty" jsonschema:"description=Supplier rating (0-5)"`
	Category         string   `json:"category,omitempty" jsonschema:"description=Product category"`
}

type FraudOutput struct {
	IsFraud bool   `json:"is_fraud"`
	Verdict string `json:"verdict"`
	Demo    bool   `json:"demo"`
}

type SupplierInput struct {
	OrderCount       *int     `json:"order_count,omitempty" jsonschema:"description=Orders placed"`
	ReturnRate       *float64 `json:"return_rate,omitempty" jsonschema:"description=Share of orders returned (0-1)"`
	AccountAgeMonths *int     `json:"account_age_months,omitempty" jsonschema:"description=Account age in months"`
	Rating           *float64 `json:"rating,omitempty" jsonschema:"description=Minimum rating (0-5)"`
	Category         string   `json:"category,omitempty" jsonschema:"description=Product category"`
}

type SupplierOutput struct {
	Found         bool    `json:"found"`
	SupplierName  string  `json:"supplier_name,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	Category      string  `json:"category,omitempty"`
	AvgOrderValue float64 `json:"avg_order_value,omitempty"`
	Demo          bool    `json:"demo"`
}

type ForecastInput struct {
	Date         string   `json:"date,omitempty" jsonschema:"description=Date as DD-MM-YYYY"`
	Season       string   `json:"season,omitempty" jsonschema:"description=Season name"`
	Event        string   `json:"event,omitempty" jsonschema:"description=Special event or none"`
	DayOfWeek    string   `json:"day_of_week,omitempty" jsonschema:"description=Day of week"`
	Holiday      string   `json:"holiday,omitempty" jsonschema:"description=Yes or No"`
	DiscountRate *float64 `json:"discount_rate,omitempty" jsonschema:"description=Discount rate (0-1)"`
}

type ForecastOutput struct {
	PredictedSales float64 `json:"predicted_sales"`
	Demo           bool    `json:"demo"`
}

type ProcurementInput struct{}

type ProcurementOutput struct {
	LowStock []predict.LowStockItem    `json:"low_stock,omitempty"`
	Forecast *predict.DemandForecast   `json:"forecast,omitempty"`
	Supplier *predict.LowStockSupplier `json:"supplier,omitempty"`
	Demo     []string                  `json:"demo,omitempty"`
	Errors   []string                  `json:"errors,omitempty"`
}

// Tool handlers

func (s *Server) handleSession(ctx context.Context, _ SessionInput) (SessionOutput, error) {
	if s.sessions == nil {
		return SessionOutput{}, fmt.Errorf("sessions: %w", ErrNotConfigured)
	}
	rec, ok := s.sessions.Load(ctx)
	if !ok {
		return SessionOutput{SignedIn: false}, nil
	}
	return SessionOutput{
		SignedIn:   true,
		Email:      rec.Email,
		ShopName:   rec.ShopName,
		VendorName: rec.VendorName,
		ShopType:   rec.ShopType,
		Location:   rec.Location,
	}, nil
}

func (s *Server) handleProducts(ctx context.Context, input ProductsInput) (ProductsOutput, error) {
	if s.inventory == nil {
		return ProductsOutput{}, fmt.Errorf("inventory: %w", ErrNotConfigured)
	}

	list := s.inventory.List
	if input.LowStockOnly {
		list = s.inventory.LowStock
	}
	products, err := list(ctx)
	if err != nil {
		return ProductsOutput{}, fmt.Errorf("list products: %w", err)
	}

	out := ProductsOutput{
		Products:  make([]ProductOutput, 0, len(products)),
		Threshold: inventory.LowStockThreshold,
	}
	low := 0
	for _, p := range products {
		if p.LowStock() {
			low++
		}
		out.Products = append(out.Products, productOutput(p))
	}
	out.Summary = fmt.Sprintf("%d products, %d low on stock", len(products), low)
	return out, nil
}

func (s *Server) handleDeduct(ctx context.Context, input DeductInput) (DeductOutput, error) {
	if s.inventory == nil {
		return DeductOutput{}, fmt.Errorf("inventory: %w", ErrNotConfigured)
	}
	if input.ProductID <= 0 {
		return DeductOutput{}, errors.New("product_id is required")
	}

	p, err := s.inventory.Deduct(ctx, input.ProductID)
	if err != nil {
		return DeductOutput{}, fmt.Errorf("deduct stock: %w", err)
	}

	msg := fmt.Sprintf("%s now has %d in stock", p.Name, p.Stock)
	if p.LowStock() {
		msg += " (low stock)"
	}
	return DeductOutput{Product: productOutput(p), Message: msg}, nil
}

func (s *Server) handleFraud(ctx context.Context, input FraudInput) (FraudOutput, error) {
	if s.predict == nil {
		return FraudOutput{}, fmt.Errorf("predictions: %w", ErrNotConfigured)
	}

	req := predict.DefaultFraudRequest()
	setInt(&req.OrderCount, input.OrderCount)
	setFloat(&req.ReturnRate, input.ReturnRate)
	setInt(&req.AccountAgeMonths, input.AccountAgeMonths)
	setInt(&req.PaymentDelayDays, input.PaymentDelayDays)
	setInt(&req.ComplaintCount, input.ComplaintCount)
	setInt(&req.DeliveryTimeDays, input.DeliveryTimeDays)
	setFloat(&req.Rating, input.Rating)
	setString(&req.Category, input.Category)

	res, err := s.predict.CheckFraud(ctx, req)
	if err != nil && !res.Demo {
		return FraudOutput{}, err
	}

	verdict := "No fraud detected: non-fraud supplier"
	if res.Value.IsFraud {
		verdict = "Fraud detected"
	}
	return FraudOutput{IsFraud: res.Value.IsFraud, Verdict: verdict, Demo: res.Demo}, nil
}

func (s *Server) handleSupplier(ctx context.Context, input SupplierInput) (SupplierOutput, error) {
	if s.predict == nil {
		return SupplierOutput{}, fmt.Errorf("predictions: %w", ErrNotConfigured)
	}

	req := predict.DefaultSupplierRequest()
	setInt(&req.OrderCount, input.OrderCount)
	setFloat(&req.ReturnRate, input.ReturnRate)
	setInt(&req.AccountAgeMonths, input.AccountAgeMonths)
	setFloat(&req.Rating, input.Rating)
	setString(&req.Category, input.Category)

	res, err := s.predict.RecommendSupplier(ctx, req)
	if err != nil && !res.Demo {
		return SupplierOutput{}, err
	}

	best := res.Value.BestSupplier
	if best == nil {
		return SupplierOutput{Found: false, Demo: res.Demo}, nil
	}
	return SupplierOutput{
		Found:         true,
		SupplierName:  best.SupplierName,
		Rating:        best.Rating,
		Category:      best.Category,
		AvgOrderValue: best.AvgOrderValue,
		Demo:          res.Demo,
	}, nil
}

func (s *Server) handleForecast(ctx context.Context, input ForecastInput) (ForecastOutput, error) {
	if s.predict == nil {
		return ForecastOutput{}, fmt.Errorf("predictions: %w", ErrNotConfigured)
	}

	req := predict.DefaultForecastRequest()
	setString(&req.Date, input.Date)
	setString(&req.Season, input.Season)
	setString(&req.Event, input.Event)
	setString(&req.DayOfWeek, input.DayOfWeek)
	setString(&req.Holiday, input.Holiday)
	setFloat(&req.DiscountRate, input.DiscountRate)

	res, err := s.predict.ForecastSales(ctx, req)
	if err != nil && !res.Demo {
		return ForecastOutput{}, err
	}
	return ForecastOutput{PredictedSales: res.Value.PredictedSales, Demo: res.Demo}, nil
}

func (s *Server) handleProcurement(ctx context.Context, _ ProcurementInput) (ProcurementOutput, error) {
	if s.predict == nil {
		return ProcurementOutput{}, fmt.Errorf("predictions: %w", ErrNotConfigured)
	}

	report := s.predict.Procurement(ctx)
	var out ProcurementOutput

	if report.LowStock.Available() {
		out.LowStock = report.LowStock.Value.Items
	}
	if report.Forecast.Available() {
		f := report.Forecast.Value
		out.Forecast = &f
	}
	if report.Supplier.Available() {
		sup := report.Supplier.Value
		out.Supplier = &sup
	}

	panels := []struct {
		name string
		demo bool
		err  error
	}{
		{"low_stock", report.LowStock.Demo, report.LowStock.Err},
		{"forecast", report.Forecast.Demo, report.Forecast.Err},
		{"supplier", report.Supplier.Demo, report.Supplier.Err},
	}
	for _, p := range panels {
		if p.demo {
			out.Demo = append(out.Demo, p.name)
		}
		if p.err != nil {
			out.Errors = append(out.Errors, p.name+": "+p.err.Error())
		}
	}

	if len(out.Errors) == len(panels) && len(out.Demo) == 0 {
		return ProcurementOutput{}, fmt.Errorf("procurement unavailable: %s", strings.Join(out.Errors, "; "))
	}
	return out, nil
}

func productOutput(p inventory.Product) ProductOutput {
	return ProductOutput{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Stock:    p.Stock,
		Supplier: p.Supplier,
		LowStock: p.LowStock(),
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}

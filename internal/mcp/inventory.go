package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/inventory"
)

var (
	// ErrDaemonUnavailable is returned when the daemon cannot be reached
	ErrDaemonUnavailable = errors.New("stockwise daemon not reachable")
	// ErrNotSignedIn is returned when no shop is signed in to the dashboard
	ErrNotSignedIn = errors.New("no shop is signed in to the dashboard")
)

// DaemonInventory reads and updates the catalogue held by a running daemon
type DaemonInventory struct {
	baseURL string
	client  *http.Client
}

// NewDaemonInventory creates a client for the daemon at baseURL
func NewDaemonInventory(baseURL string, timeout time.Duration) *DaemonInventory {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DaemonInventory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type productList struct {
	Products []inventory.Product `json:"products"`
}

func (d *DaemonInventory) List(ctx context.Context) ([]inventory.Product, error) {
	var out productList
	if err := d.do(ctx, http.MethodGet, "/v1/products", &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (d *DaemonInventory) LowStock(ctx context.Context) ([]inventory.Product, error) {
	var out productList
	if err := d.do(ctx, http.MethodGet, "/v1/products?low_stock=true", &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (d *DaemonInventory) Deduct(ctx context.Context, id int64) (inventory.Product, error) {
	var p inventory.Product
	err := d.do(ctx, http.MethodPost, "/v1/products/"+strconv.FormatInt(id, 10)+"/deduct", &p)
	return p, err
}

// apiError mirrors the daemon's error body
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (d *DaemonInventory) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrDaemonUnavailable, d.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e apiError
		_ = json.Unmarshal(body, &e)
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return ErrNotSignedIn
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", e.Error.Message, inventory.ErrProductNotFound)
		case resp.StatusCode == http.StatusConflict:
			return inventory.ErrNoStock
		case e.Error.Message != "":
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, e.Error.Message)
		default:
			return fmt.Errorf("daemon returned %d", resp.StatusCode)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CatalogInventory serves the tools from an in-process catalogue
type CatalogInventory struct {
	Catalog *inventory.Catalog
}

func (c CatalogInventory) List(context.Context) ([]inventory.Product, error) {
	return c.Catalog.List(), nil
}

func (c CatalogInventory) LowStock(context.Context) ([]inventory.Product, error) {
	return c.Catalog.LowStock(), nil
}

func (c CatalogInventory) Deduct(ctx context.Context, id int64) (inventory.Product, error) {
	return c.Catalog.Deduct(ctx, id)
}

package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/stockwise/internal/events"
)

// Stats summarizes the catalogue for the dashboard
type Stats struct {
	TotalProducts int     `json:"total_products"`
	TotalUnits    int     `json:"total_units"`
	StockValue    float64 `json:"stock_value"`
	LowStockCount int     `json:"low_stock_count"`
}

// Catalog is the in-memory, ordered product list. Changes are recorded in
// the feed and published as events.
type Catalog struct {
	mu        sync.RWMutex
	products  []Product
	nextID    int64
	feed      *Feed
	publisher events.Publisher
	logger    *slog.Logger
}

// NewCatalog creates a catalogue holding a copy of seed
func NewCatalog(seed []Product, feed *Feed, publisher events.Publisher, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if feed == nil {
		feed = NewFeed()
	}

	c := &Catalog{
		products:  make([]Product, 0, len(seed)),
		nextID:    1,
		feed:      feed,
		publisher: publisher,
		logger:    logger,
	}
	for _, p := range seed {
		c.products = append(c.products, p)
		if p.ID >= c.nextID {
			c.nextID = p.ID + 1
		}
	}
	return c
}

// Feed returns the activity feed the catalogue records into
func (c *Catalog) Feed() *Feed {
	return c.feed
}

// List returns all products in insertion order
func (c *Catalog) List() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// LowStock returns the products below the threshold
func (c *Catalog) LowStock() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Product
	for _, p := range c.products {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out
}

// Get returns one product
func (c *Catalog) Get(id int64) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.index(id)
	if i < 0 {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return c.products[i], nil
}

// Add appends a product
func (c *Catalog) Add(ctx context.Context, in Input) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	p := Product{
		ID:       c.nextID,
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Stock:    in.Stock,
		Supplier: in.Supplier,
	}
	c.nextID++
	c.products = append(c.products, p)
	c.mu.Unlock()

	c.feed.Record(KindProduct, fmt.Sprintf("Added %s (%d in stock)", p.Name, p.Stock))
	c.emit(ctx, events.TypeProductAdded, p)
	c.checkLow(ctx, Product{}, p)
	return p, nil
}

// Update replaces the editable fields of a product
func (c *Catalog) Update(ctx context.Context, id int64, in Input) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.mu.Unlock()
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	before := c.products[i]
	after := Product{
		ID:       id,
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Stock:    in.Stock,
		Supplier: in.Supplier,
	}
	c.products[i] = after
	c.mu.Unlock()

	c.feed.Record(KindProduct, fmt.Sprintf("Updated %s", after.Name))
	c.emit(ctx, events.TypeProductUpdated, after)
	c.checkLow(ctx, before, after)
	return after, nil
}

// Delete removes a product, keeping the order of the rest
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	p := c.products[i]
	c.products = append(c.products[:i], c.products[i+1:]...)
	c.mu.Unlock()

	c.feed.Record(KindProduct, fmt.Sprintf("Deleted %s", p.Name))
	c.emit(ctx, events.TypeProductDeleted, p)
	return nil
}

// Deduct takes one unit out of stock. Stock never goes below zero.
func (c *Catalog) Deduct(ctx context.Context, id int64) (Product, error) {
	c.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.mu.Unlock()
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	before := c.products[i]
	if before.Stock <= 0 {
		c.mu.Unlock()
		return before, fmt.Errorf("%s: %w", before.Name, ErrNoStock)
	}
	c.products[i].Stock--
	after := c.products[i]
	c.mu.Unlock()

	c.feed.Record(KindStock, fmt.Sprintf("Sold 1 %s, %d left", after.Name, after.Stock))
	c.emit(ctx, events.TypeStockDeducted, after)
	c.checkLow(ctx, before, after)
	return after, nil
}

// Stats summarizes the current catalogue
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{TotalProducts: len(c.products)}
	for _, p := range c.products {
		s.TotalUnits += p.Stock
		s.StockValue += p.Value()
		if p.LowStock() {
			s.LowStockCount++
		}
	}
	return s
}

// index returns the position of id or -1. Callers hold the lock.
func (c *Catalog) index(id int64) int {
	for i, p := range c.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// checkLow raises an alert when a product crosses into low stock
func (c *Catalog) checkLow(ctx context.Context, before, after Product) {
	if !after.LowStock() {
		return
	}
	if before.ID != 0 && before.LowStock() {
		return
	}
	c.feed.Record(KindAlert, fmt.Sprintf("%s is low on stock (%d left)", after.Name, after.Stock))
	c.emit(ctx, events.TypeStockLow, after)
}

func (c *Catalog) emit(ctx context.Context, eventType string, p Product) {
	if err := events.Emit(ctx, c.publisher, eventType, p); err != nil {
		c.logger.Warn("failed to publish event", "type", eventType, "product_id", p.ID, "error", err)
	}
}

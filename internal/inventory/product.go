// Package inventory holds the product catalogue and the activity feed
package inventory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LowStockThreshold is the stock level below which a product is flagged
const LowStockThreshold = 10

var (
	// ErrInvalidProduct is returned when product input fails validation
	ErrInvalidProduct = errors.New("invalid product")
	// ErrProductNotFound is returned for an unknown product id
	ErrProductNotFound = errors.New("product not found")
	// ErrNoStock is returned when deducting from an empty product
	ErrNoStock = errors.New("no stock available")
)

// Product is one catalogue entry
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Supplier string  `json:"supplier"`
}

// LowStock reports whether the product needs restocking
func (p Product) LowStock() bool {
	return p.Stock < LowStockThreshold
}

// Value is price times stock
func (p Product) Value() float64 {
	return p.Price * float64(p.Stock)
}

// Input is the editable part of a product
type Input struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Supplier string  `json:"supplier"`
}

// Validate checks required fields and ranges
func (in Input) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case strings.TrimSpace(in.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	case math.IsNaN(in.Price) || math.IsInf(in.Price, 0):
		return fmt.Errorf("%w: price must be a finite number", ErrInvalidProduct)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

// ParseInput builds an Input from form strings. Name, category, price and
// stock are required; supplier is optional.
func ParseInput(name, category, price, stock, supplier string) (Input, error) {
	in := Input{
		Name:     strings.TrimSpace(name),
		Category: strings.TrimSpace(category),
		Supplier: strings.TrimSpace(supplier),
	}

	price = strings.TrimSpace(price)
	stock = strings.TrimSpace(stock)
	if in.Name == "" || in.Category == "" || price == "" || stock == "" {
		return Input{}, fmt.Errorf("%w: please fill all required fields", ErrInvalidProduct)
	}

	p, err := strconv.ParseFloat(price, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return Input{}, fmt.Errorf("%w: price %q is not a number", ErrInvalidProduct, price)
	}
	in.Price = p

	s, err := strconv.Atoi(stock)
	if err != nil {
		return Input{}, fmt.Errorf("%w: stock %q is not a whole number", ErrInvalidProduct, stock)
	}
	in.Stock = s

	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// DefaultProducts is the catalogue a fresh daemon starts with
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Name: "Laptop HP", Category: "Electronics", Price: 45000, Stock: 15, Supplier: "Tech Suppliers"},
		{ID: 2, Name: "Mouse Wireless", Category: "Electronics", Price: 500, Stock: 50, Supplier: "Gadget World"},
		{ID: 3, Name: "Keyboard Mechanical", Category: "Electronics", Price: 2500, Stock: 8, Supplier: "Tech Suppliers"},
	}
}

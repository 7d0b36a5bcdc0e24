package web

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/stockwise/internal/predict"
)

// errInvalidForm is returned when a form value does not parse
var errInvalidForm = errors.New("invalid form")

// formReader parses typed values and keeps the first error
type formReader struct {
	values url.Values
	err    error
}

func (f *formReader) str(key string) string {
	v := strings.TrimSpace(f.values.Get(key))
	if v == "" && f.err == nil {
		f.err = fmt.Errorf("%w: %s is required", errInvalidForm, key)
	}
	return v
}

func (f *formReader) integer(key string) int {
	raw := f.str(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("%w: %s must be a whole number", errInvalidForm, key)
	}
	return n
}

func (f *formReader) number(key string) float64 {
	raw := f.str(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseFloat(raw, 64)
	if (err != nil || math.IsNaN(n) || math.IsInf(n, 0)) && f.err == nil {
		f.err = fmt.Errorf("%w: %s must be a number", errInvalidForm, key)
	}
	return n
}

func parseFraudForm(v url.Values) (predict.FraudRequest, error) {
	f := &formReader{values: v}
	req := predict.FraudRequest{
		OrderCount:       f.integer("order_count"),
		ReturnRate:       f.number("return_rate"),
		AccountAgeMonths: f.integer("account_age_months"),
		PaymentDelayDays: f.integer("payment_delay_days"),
		ComplaintCount:   f.integer("complaint_count"),
		DeliveryTimeDays: f.integer("delivery_time_days"),
		Rating:           f.number("rating"),
		Category:         f.str("category"),
	}
	return req, f.err
}

func parseSupplierForm(v url.Values) (predict.SupplierRequest, error) {
	f := &formReader{values: v}
	req := predict.SupplierRequest{
		OrderCount:       f.integer("order_count"),
		ReturnRate:       f.number("return_rate"),
		AccountAgeMonths: f.integer("account_age_months"),
		Rating:           f.number("rating"),
		Category:         f.str("category"),
	}
	return req, f.err
}

func parseForecastForm(v url.Values) (predict.ForecastRequest, error) {
	f := &formReader{values: v}
	req := predict.ForecastRequest{
		Date:         f.str("date"),
		Season:       f.str("season"),
		Event:        f.str("event"),
		DayOfWeek:    f.str("day_of_week"),
		Holiday:      f.str("holiday"),
		DiscountRate: f.number("discount_rate"),
	}
	return req, f.err
}

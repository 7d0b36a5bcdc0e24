package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/predict"
	"github.com/felixgeelhaar/stockwise/internal/session"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0.00"},
		{500, "₹500.00"},
		{1519.83, "₹1,519.83"},
		{45000, "₹45,000.00"},
		{720000, "₹720,000.00"},
		{1234567.891, "₹1,234,567.89"},
		{-2500, "-₹2,500.00"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHumanizeSince(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{49 * time.Hour, "2 days ago"},
	}
	for _, tt := range tests {
		if got := humanizeSince(tt.in); got != tt.want {
			t.Errorf("humanizeSince(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderer_AllPages(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	for name := range pageLayouts {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := r.Render(rec, http.StatusOK, name, page{Title: name})
			if err != nil {
				t.Fatalf("Render(%s) error = %v", name, err)
			}
			if !strings.HasPrefix(rec.Body.String(), "<!doctype html>") {
				t.Errorf("Render(%s) did not produce a document", name)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	rec := httptest.NewRecorder()
	if err := r.Render(rec, http.StatusOK, "missing", page{}); err == nil {
		t.Error("Render() should fail for an unknown page")
	}
}

func TestRenderer_ShellShowsShop(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, "products", page{
		Title:  "Products",
		Active: "/products",
		Shop:   &session.Record{ShopName: "Kirana <Store>", Email: "k@example.com"},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Kirana &lt;Store&gt;") {
		t.Error("shop name not escaped into the sidebar")
	}
	if !strings.Contains(body, `href="/products" class="active"`) {
		t.Error("active navigation item not marked")
	}
}

func TestFlash_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	setFlash(rec, noticeError, "No stock available")

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	out := httptest.NewRecorder()
	got := popFlash(out, req)
	if len(got) != 1 || got[0].Kind != noticeError || got[0].Message != "No stock available" {
		t.Fatalf("popFlash() = %+v", got)
	}

	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("flash cookie not cleared: %+v", cleared)
	}
}

func TestFlash_Garbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: "%%%"})
	if got := popFlash(httptest.NewRecorder(), req); got != nil {
		t.Errorf("popFlash() = %+v, want nil", got)
	}
	if got := popFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Errorf("popFlash() without cookie = %+v", got)
	}
}

func TestParseFraudForm(t *testing.T) {
	v := url.Values{
		"order_count":        {"10"},
		"return_rate":        {"0.1"},
		"account_age_months": {"12"},
		"payment_delay_days": {"1"},
		"complaint_count":    {"0"},
		"delivery_time_days": {"2"},
		"rating":             {"4.0"},
		"category":           {" Electronics "},
	}
	got, err := parseFraudForm(v)
	if err != nil {
		t.Fatalf("parseFraudForm() error = %v", err)
	}
	if got != predict.DefaultFraudRequest() {
		t.Errorf("parseFraudForm() = %+v", got)
	}

	v.Set("rating", "great")
	if _, err := parseFraudForm(v); !errors.Is(err, errInvalidForm) || !strings.Contains(err.Error(), "rating") {
		t.Errorf("bad rating error = %v", err)
	}
	for _, raw := range []string{"NaN", "Inf", "-Inf"} {
		v.Set("rating", raw)
		if _, err := parseFraudForm(v); !errors.Is(err, errInvalidForm) {
			t.Errorf("rating %s error = %v, want errInvalidForm", raw, err)
		}
	}

	v.Del("category")
	v.Set("rating", "4")
	if _, err := parseFraudForm(v); !errors.Is(err, errInvalidForm) || !strings.Contains(err.Error(), "category is required") {
		t.Errorf("missing category error = %v", err)
	}
}

func TestParseSupplierAndForecastForms(t *testing.T) {
	sup, err := parseSupplierForm(url.Values{
		"order_count": {"50"}, "return_rate": {"0.05"}, "account_age_months": {"24"},
		"rating": {"4.5"}, "category": {"Electronics"},
	})
	if err != nil || sup != predict.DefaultSupplierRequest() {
		t.Errorf("parseSupplierForm() = %+v, %v", sup, err)
	}

	fc, err := parseForecastForm(url.Values{
		"date": {"23-10-2025"}, "season": {"spring"}, "event": {"none"},
		"day_of_week": {"monday"}, "holiday": {"Yes"}, "discount_rate": {"0"},
	})
	if err != nil || fc != predict.DefaultForecastRequest() {
		t.Errorf("parseForecastForm() = %+v, %v", fc, err)
	}

	if _, err := parseForecastForm(url.Values{"date": {"x"}}); !errors.Is(err, errInvalidForm) {
		t.Errorf("incomplete forecast form error = %v", err)
	}
}

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Layouts
const (
	layoutPublic = "public"
	layoutShell  = "shell"
)

// pageLayouts maps every page to the layout it renders in
var pageLayouts = map[string]string{
	"index":        layoutPublic,
	"login":        layoutPublic,
	"signup":       layoutPublic,
	"not_found":    layoutPublic,
	"loading":      layoutPublic,
	"dashboard":    layoutShell,
	"products":     layoutShell,
	"ai_assistant": layoutShell,
	"procurement":  layoutShell,
}

// navItem is one sidebar link
type navItem struct {
	Path  string
	Label string
}

var sidebar = []navItem{
	{Path: "/dashboard", Label: "Dashboard"},
	{Path: "/products", Label: "Products"},
	{Path: "/ai-assistant", Label: "AI Assistant"},
	{Path: "/procurement", Label: "Procurement"},
}

// Notice kinds
const (
	noticeSuccess = "success"
	noticeError   = "error"
	noticeInfo    = "info"
)

// notice is a non-blocking message shown above the page content
type notice struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// page is what every template receives
type page struct {
	Title   string
	Active  string
	Shop    *session.Record
	Notices []notice
	Data    any
}

// Renderer executes the embedded page templates
type Renderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"money":    formatMoney,
	"ago":      formatAgo,
	"navItems": func() []navItem { return sidebar },
}

// NewRenderer parses every page together with its layout and partials
func NewRenderer() (*Renderer, error) {
	return newRenderer(templateFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageLayouts))}

	for name, layout := range pageLayouts {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys,
			"templates/partials.html",
			"templates/"+layout+".html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page name with status. The page is executed into a buffer
// first so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, pageLayouts[name], p); err != nil {
		return fmt.Errorf("execute page %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// formatMoney renders rupees with two decimals and thousands separators
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := "₹" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// formatAgo renders a coarse relative time
func formatAgo(t time.Time) string {
	return humanizeSince(time.Since(t))
}

func humanizeSince(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

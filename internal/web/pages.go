package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/stockwise/internal/inventory"
	"github.com/felixgeelhaar/stockwise/internal/predict"
)

// recentActivity is how many feed entries the dashboard lists
const recentActivity = 10

type dashboardView struct {
	Stats     inventory.Stats
	Threshold int
	Activity  []inventory.Activity
	Forecast  *predict.Result[predict.ForecastResult]
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	forecast := h.assistant.Forecast
	h.mu.Unlock()

	h.render(w, r, http.StatusOK, "dashboard", page{
		Title:  "Dashboard",
		Active: "/dashboard",
		Data: dashboardView{
			Stats:     h.catalog.Stats(),
			Threshold: inventory.LowStockThreshold,
			Activity:  h.feed.Recent(recentActivity),
			Forecast:  forecast,
		},
	})
}

// productForm echoes the raw form values back to the page
type productForm struct {
	Name     string
	Category string
	Price    string
	Stock    string
	Supplier string
}

type productsView struct {
	Products []inventory.Product
	EditID   int64
	Form     productForm
	Error    string
}

func readProductForm(r *http.Request) productForm {
	return productForm{
		Name:     r.PostFormValue("name"),
		Category: r.PostFormValue("category"),
		Price:    r.PostFormValue("price"),
		Stock:    r.PostFormValue("stock"),
		Supplier: r.PostFormValue("supplier"),
	}
}

func (f productForm) parse() (inventory.Input, error) {
	return inventory.ParseInput(f.Name, f.Category, f.Price, f.Stock, f.Supplier)
}

func (h *Handler) renderProducts(w http.ResponseWriter, r *http.Request, status int, view productsView, notices ...notice) {
	view.Products = h.catalog.List()
	h.render(w, r, status, "products", page{
		Title:   "Products",
		Active:  "/products",
		Notices: notices,
		Data:    view,
	})
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	var view productsView

	if raw := r.URL.Query().Get("edit"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			if p, err := h.catalog.Get(id); err == nil {
				view.EditID = p.ID
				view.Form = productForm{
					Name:     p.Name,
					Category: p.Category,
					Price:    strconv.FormatFloat(p.Price, 'f', -1, 64),
					Stock:    strconv.Itoa(p.Stock),
					Supplier: p.Supplier,
				}
			}
		}
		if view.EditID == 0 {
			h.renderProducts(w, r, http.StatusNotFound, view, notice{Kind: noticeError, Message: "Product not found"})
			return
		}
	}

	h.renderProducts(w, r, http.StatusOK, view)
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderProducts(w, r, http.StatusBadRequest, productsView{Error: "Invalid form submission"})
		return
	}
	form := readProductForm(r)

	in, err := form.parse()
	if err == nil {
		_, err = h.catalog.Add(r.Context(), in)
	}
	if err != nil {
		h.renderProducts(w, r, http.StatusUnprocessableEntity, productsView{Form: form, Error: productError(err)})
		return
	}

	setFlash(w, noticeSuccess, "Product added successfully")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderProducts(w, r, http.StatusBadRequest, productsView{EditID: id, Error: "Invalid form submission"})
		return
	}
	form := readProductForm(r)

	in, err := form.parse()
	if err == nil {
		_, err = h.catalog.Update(r.Context(), id, in)
	}
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		h.productMissing(w, r)
		return
	case err != nil:
		h.renderProducts(w, r, http.StatusUnprocessableEntity, productsView{EditID: id, Form: form, Error: productError(err)})
		return
	}

	setFlash(w, noticeSuccess, "Product updated successfully")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.productMissing(w, r)
		return
	}

	setFlash(w, noticeSuccess, "Product deleted")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) handleDeductProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	_, err := h.catalog.Deduct(r.Context(), id)
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		h.productMissing(w, r)
		return
	case errors.Is(err, inventory.ErrNoStock):
		setFlash(w, noticeError, "No stock available")
	case err != nil:
		setFlash(w, noticeError, "Failed to deduct stock")
	default:
		setFlash(w, noticeSuccess, "Stock deducted")
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.productMissing(w, r)
		return 0, false
	}
	return id, true
}

func (h *Handler) productMissing(w http.ResponseWriter, r *http.Request) {
	h.renderProducts(w, r, http.StatusNotFound, productsView{}, notice{Kind: noticeError, Message: "Product not found"})
}

func productError(err error) string {
	if errors.Is(err, inventory.ErrInvalidProduct) {
		return err.Error()
	}
	return "Failed to save product"
}

func (h *Handler) renderAssistant(w http.ResponseWriter, r *http.Request, status int, notices ...notice) {
	h.mu.Lock()
	view := h.assistant
	h.mu.Unlock()

	h.render(w, r, status, "ai_assistant", page{
		Title:   "AI Assistant",
		Active:  "/ai-assistant",
		Notices: notices,
		Data:    view,
	})
}

func (h *Handler) handleAssistant(w http.ResponseWriter, r *http.Request) {
	h.renderAssistant(w, r, http.StatusOK)
}

func (h *Handler) handleFraud(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAssistant(w, r, http.StatusBadRequest, notice{Kind: noticeError, Message: "Invalid form submission"})
		return
	}
	req, err := parseFraudForm(r.PostForm)
	h.mu.Lock()
	h.assistant.FraudForm = req
	h.mu.Unlock()
	if err != nil {
		h.renderAssistant(w, r, http.StatusUnprocessableEntity, notice{Kind: noticeError, Message: err.Error()})
		return
	}

	res, err := h.predict.CheckFraud(r.Context(), req)
	n := h.settle(err, res.Demo, "Fraud detection completed", "Failed to check fraud detection")
	if err == nil || res.Demo {
		h.mu.Lock()
		h.assistant.Fraud = &res
		h.mu.Unlock()
		verdict := "no fraud detected"
		if res.Value.IsFraud {
			verdict = "fraud detected"
		}
		h.feed.Record(inventory.KindAI, fmt.Sprintf("Fraud check for %s: %s", req.Category, verdict))
	}
	h.renderAssistant(w, r, http.StatusOK, n...)
}

func (h *Handler) handleSupplier(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAssistant(w, r, http.StatusBadRequest, notice{Kind: noticeError, Message: "Invalid form submission"})
		return
	}
	req, err := parseSupplierForm(r.PostForm)
	h.mu.Lock()
	h.assistant.SupplierForm = req
	h.mu.Unlock()
	if err != nil {
		h.renderAssistant(w, r, http.StatusUnprocessableEntity, notice{Kind: noticeError, Message: err.Error()})
		return
	}

	res, err := h.predict.RecommendSupplier(r.Context(), req)
	n := h.settle(err, res.Demo, "Supplier recommendation received", "Failed to get supplier recommendation")
	if err == nil || res.Demo {
		h.mu.Lock()
		h.assistant.Supplier = &res
		h.mu.Unlock()
		if s := res.Value.BestSupplier; s != nil {
			h.feed.Record(inventory.KindAI, "Recommended supplier: "+s.SupplierName)
		}
	}
	h.renderAssistant(w, r, http.StatusOK, n...)
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAssistant(w, r, http.StatusBadRequest, notice{Kind: noticeError, Message: "Invalid form submission"})
		return
	}
	req, err := parseForecastForm(r.PostForm)
	h.mu.Lock()
	h.assistant.ForecastForm = req
	h.mu.Unlock()
	if err != nil {
		h.renderAssistant(w, r, http.StatusUnprocessableEntity, notice{Kind: noticeError, Message: err.Error()})
		return
	}

	res, err := h.predict.ForecastSales(r.Context(), req)
	n := h.settle(err, res.Demo, "Sales forecast calculated", "Failed to get sales forecast")
	if err == nil || res.Demo {
		h.mu.Lock()
		h.assistant.Forecast = &res
		h.mu.Unlock()
		h.feed.Record(inventory.KindAI, "Sales forecast: "+formatMoney(res.Value.PredictedSales))
	}
	h.renderAssistant(w, r, http.StatusOK, n...)
}

// settle turns a prediction outcome into page notices
func (h *Handler) settle(err error, demo bool, success, failure string) []notice {
	if err == nil {
		return []notice{{Kind: noticeSuccess, Message: success}}
	}
	notices := []notice{{Kind: noticeError, Message: failure}}
	if demo {
		notices = append(notices, notice{Kind: noticeInfo, Message: "Showing demo data"})
	}
	return notices
}

func (h *Handler) handleProcurement(w http.ResponseWriter, r *http.Request) {
	report := h.predict.Procurement(r.Context())

	var notices []notice
	failures := []struct {
		err     error
		message string
	}{
		{report.LowStock.Err, "Failed to load low stock alerts"},
		{report.Forecast.Err, "Failed to load demand forecast"},
		{report.Supplier.Err, "Failed to load supplier recommendation"},
	}
	for _, f := range failures {
		if f.err != nil {
			notices = append(notices, notice{Kind: noticeError, Message: f.message})
		}
	}
	switch {
	case len(notices) == 0:
		notices = append(notices, notice{Kind: noticeSuccess, Message: "Procurement data loaded"})
	case report.LowStock.Demo || report.Forecast.Demo || report.Supplier.Demo:
		notices = append(notices, notice{Kind: noticeInfo, Message: "Showing demo data"})
	}

	h.render(w, r, http.StatusOK, "procurement", page{
		Title:   "Procurement",
		Active:  "/procurement",
		Notices: notices,
		Data:    report,
	})
}

package predict

// FraudRequest is the body of the fraud detection call
type FraudRequest struct {
	OrderCount       int     `json:"order_count"`
	ReturnRate       float64 `json:"return_rate"`
	AccountAgeMonths int     `json:"account_age_months"`
	PaymentDelayDays int     `json:"payment_delay_days"`
	ComplaintCount   int     `json:"complaint_count"`
	DeliveryTimeDays int     `json:"delivery_time_days"`
	Rating           float64 `json:"rating"`
	Category         string  `json:"category"`
}

// FraudResult is the fraud detection answer
type FraudResult struct {
	IsFraud bool `json:"is_fraud"`
}

// SupplierRequest is the body of the supplier recommendation call
type SupplierRequest struct {
	OrderCount       int     `json:"order_count"`
	ReturnRate       float64 `json:"return_rate"`
	AccountAgeMonths int     `json:"account_age_months"`
	Rating           float64 `json:"rating"`
	Category         string  `json:"category"`
}

// Supplier describes a recommended supplier
type Supplier struct {
	SupplierName  string  `json:"supplier_name"`
	Rating        float64 `json:"rating"`
	Category      string  `json:"category"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

// SupplierResult is the supplier recommendation answer
type SupplierResult struct {
	BestSupplier *Supplier `json:"best_supplier"`
}

// ForecastRequest is the body of the yearly sales forecast call
type ForecastRequest struct {
	Date         string  `json:"date"`
	Season       string  `json:"season"`
	Event        string  `json:"event"`
	DayOfWeek    string  `json:"day_of_week"`
	Holiday      string  `json:"holiday"`
	DiscountRate float64 `json:"discount_rate"`
}

// ForecastResult is the sales forecast answer
type ForecastResult struct {
	PredictedSales float64 `json:"predicted_sales"`
}

// LowStockItem is one entry of the low stock alert
type LowStockItem struct {
	ItemName     string `json:"item_name"`
	CurrentStock int    `json:"current_stock"`
	ReorderLevel int    `json:"reorder_level"`
}

// LowStockAlert is the low stock alert answer
type LowStockAlert struct {
	Items []LowStockItem `json:"low_stock_items"`
}

// DemandForecast is the low stock demand forecast answer
type DemandForecast struct {
	PredictedDemand float64 `json:"predicted_demand"`
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
}

// LowStockSupplier is the best supplier for the items running low
type LowStockSupplier struct {
	SupplierName  string  `json:"supplier_name"`
	Category      string  `json:"category"`
	Rating        float64 `json:"rating"`
	AvgOrderValue float64 `json:"avg_order_value"`
	FraudStatus   string  `json:"fraud_status"`
}

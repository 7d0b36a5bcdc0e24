package predict

// DefaultFraudRequest returns the fraud form defaults
func DefaultFraudRequest() FraudRequest {
	return FraudRequest{
		OrderCount:       10,
		ReturnRate:       0.1,
		AccountAgeMonths: 12,
		PaymentDelayDays: 1,
		ComplaintCount:   0,
		DeliveryTimeDays: 2,
		Rating:           4.0,
		Category:         "Electronics",
	}
}

// DefaultSupplierRequest returns the supplier form defaults
func DefaultSupplierRequest() SupplierRequest {
	return SupplierRequest{
		OrderCount:       50,
		ReturnRate:       0.05,
		AccountAgeMonths: 24,
		Rating:           4.5,
		Category:         "Electronics",
	}
}

// DefaultForecastRequest returns the forecast form defaults
func DefaultForecastRequest() ForecastRequest {
	return ForecastRequest{
		Date:         "23-10-2025",
		Season:       "spring",
		Event:        "none",
		DayOfWeek:    "monday",
		Holiday:      "Yes",
		DiscountRate: 0,
	}
}

// Demo data served when DemoFallback is on

func demoFraud() FraudResult {
	return FraudResult{IsFraud: false}
}

func demoSupplier() SupplierResult {
	return SupplierResult{BestSupplier: &Supplier{
		SupplierName:  "Kiran Industries",
		Rating:        4.2,
		Category:      "Electronics",
		AvgOrderValue: 1519.83,
	}}
}

func demoForecast() ForecastResult {
	return ForecastResult{PredictedSales: 43000}
}

func demoLowStock() LowStockAlert {
	return LowStockAlert{Items: []LowStockItem{
		{ItemName: "Laptop HP", CurrentStock: 5, ReorderLevel: 10},
		{ItemName: "Mouse Wireless", CurrentStock: 8, ReorderLevel: 15},
	}}
}

func demoDemandForecast() DemandForecast {
	return DemandForecast{PredictedDemand: 250, Category: "Electronics", Confidence: 87}
}

func demoLowStockSupplier() LowStockSupplier {
	return LowStockSupplier{
		SupplierName:  "Kiran Industries",
		Category:      "Electronics",
		Rating:        4.2,
		AvgOrderValue: 1519.83,
		FraudStatus:   "Non-Fraud",
	}
}

package domain

// TopItem is a product aggregated by quantity sold.
type TopItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// StockItem is a product viewed through its stock level.
type StockItem struct {
	Name      string  `json:"name"`
	Stock     float64 `json:"stock"`
	CostPrice float64 `json:"cost_price,omitempty"`
}

// DailySummary aggregates the current calendar day's sales.
type DailySummary struct {
	Date           string      `json:"date"`
	TotalSales     float64     `json:"total_sales"`
	TotalProfit    float64     `json:"total_profit"`
	TotalUnitsSold float64     `json:"total_items_sold"`
	TopSeller      string      `json:"top_selling_item,omitempty"`
	TopItems       []TopItem   `json:"top_selling_items"`
	LowStockItems  []StockItem `json:"low_stock_items"`
}

// ReorderList distinguishes an empty catalog from a well-stocked one.
type ReorderList struct {
	NoProducts bool        `json:"no_products"`
	Items      []StockItem `json:"items"`
}

// PriceAdvice is a margin-based selling price recommendation.
type PriceAdvice struct {
	Product          string  `json:"product"`
	CostPrice        float64 `json:"cost_price"`
	RecommendedPrice float64 `json:"recommended_price"`
	Margin           string  `json:"margin"`
}

// StockNotifications lists products that ran out or are running low.
type StockNotifications struct {
	OutOfStock  []StockItem `json:"out_of_stock"`
	LowStock    []StockItem `json:"low_stock"`
	TotalAlerts int         `json:"total_alerts"`
}

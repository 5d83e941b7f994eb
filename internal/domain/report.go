package domain

// ============================================================
// Reports / dashboards
// ============================================================

// CategorySpend is one category row of the monthly dashboard.
type CategorySpend struct {
	Category    string  `json:"category"`
	Budget      float64 `json:"budget"`
	Spent       float64 `json:"spent"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	Count       int     `json:"transaction_count"`
}

// MonthlySummary is the dashboard for one month.
type MonthlySummary struct {
	TenantID    string             `json:"tenant_id"`
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	TotalBudget float64            `json:"total_budget"`
	TotalSpent  float64            `json:"total_spent"`
	Categories  []CategorySpend    `json:"categories"`
	ByPayer     map[string]float64 `json:"by_payer"`
	Locked      bool               `json:"locked"`
}

// MonthTotal is one point of the yearly trend.
type MonthTotal struct {
	Month  string  `json:"month"` // YYYY-MM
	Budget float64 `json:"budget"`
	Spent  float64 `json:"spent"`
}

// YearlyTrend is twelve months of totals.
type YearlyTrend struct {
	TenantID string       `json:"tenant_id"`
	Year     int          `json:"year"`
	Months   []MonthTotal `json:"months"`
	Total    float64      `json:"total"`
}

// OrphanedTransaction is a transaction whose category name matches no category.
type OrphanedTransaction struct {
	Transaction       Transaction `json:"transaction"`
	SuggestedCategory string      `json:"suggested_category,omitempty"`
	Distance          int         `json:"distance,omitempty"`
}

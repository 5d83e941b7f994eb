package domain

import "sort"

// BudgetForMonth returns the budget that applies to monthKey: the month's own
// value, otherwise the value of the most recent earlier month, otherwise 0.
// The second result reports which month the value came from ("" when none).
func (c *Category) BudgetForMonth(monthKey string) (float64, string) {
	if v, ok := c.Budgets[monthKey]; ok {
		return v, monthKey
	}
	best := ""
	for k := range c.Budgets {
		// "YYYY-MM" keys order lexically the same as chronologically.
		if k < monthKey && k > best {
			best = k
		}
	}
	if best == "" {
		return 0, ""
	}
	return c.Budgets[best], best
}

// SetBudget stores amount for monthKey, allocating the map if needed.
func (c *Category) SetBudget(monthKey string, amount float64) {
	if c.Budgets == nil {
		c.Budgets = make(map[string]float64)
	}
	c.Budgets[monthKey] = Round2(amount)
}

// BudgetMonths returns the months with an explicit budget, oldest first.
func (c *Category) BudgetMonths() []string {
	keys := make([]string, 0, len(c.Budgets))
	for k := range c.Budgets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BudgetCarry describes one copy-forward performed by CarryForwardBudgets.
type BudgetCarry struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	FromMonth    string  `json:"from_month"`
	ToMonth      string  `json:"to_month"`
	Amount       float64 `json:"amount"`
}

package domain

import (
	"strings"
	"time"
)

// ============================================================
// Reminders
// ============================================================

// Frequency is how often a reminder recurs. Nothing recurs more often than monthly.
type Frequency string

const (
	OneTime    Frequency = "one_time"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	HalfYearly Frequency = "half_yearly"
	Yearly     Frequency = "yearly"
)

// intervalMonths maps periodic frequencies to their step in months.
var intervalMonths = map[Frequency]int{
	Monthly:    1,
	Quarterly:  3,
	HalfYearly: 6,
	Yearly:     12,
}

// LastWeek in WeekOfMonth selects the last occurrence of the weekday.
const LastWeek = 5

// RecurrenceRule addresses the due day inside a month either by day number
// or by nth weekday. Exactly one mode is set.
type RecurrenceRule struct {
	Frequency   Frequency     `json:"frequency"`
	DayOfMonth  int           `json:"day_of_month,omitempty"`
	Weekday     *time.Weekday `json:"weekday,omitempty"`
	WeekOfMonth int           `json:"week_of_month,omitempty"`
}

// Reminder is a recurring bill or payment prompt.
type Reminder struct {
	ID                 string            `json:"id"`
	TenantID           string            `json:"tenant_id"`
	Title              string            `json:"title"`
	Amount             float64           `json:"amount,omitempty"`
	Category           string            `json:"category,omitempty"`
	Rule               RecurrenceRule    `json:"rule"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date,omitempty"`
	Active             bool              `json:"active"`
	CompletedInstances map[string]string `json:"completed_instances"` // due date -> transaction id
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ReminderUpdate carries the editable fields of a reminder. A nil Active
// leaves the reminder's current state untouched.
type ReminderUpdate struct {
	Title     string         `json:"title"`
	Amount    float64        `json:"amount,omitempty"`
	Category  string         `json:"category,omitempty"`
	Rule      RecurrenceRule `json:"rule"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date,omitempty"`
	Active    *bool          `json:"active,omitempty"`
}

// ReminderInstance is one concrete due date of a reminder.
type ReminderInstance struct {
	ReminderID    string  `json:"reminder_id"`
	Title         string  `json:"title"`
	Amount        float64 `json:"amount,omitempty"`
	Category      string  `json:"category,omitempty"`
	DueDate       string  `json:"due_date"`
	Completed     bool    `json:"completed"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Overdue       bool    `json:"overdue"`
}

// Validate checks the reminder and its rule.
func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ErrValidation{Field: "title", Message: "required"}
	}
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return &ErrValidation{Field: "start_date", Message: "invalid format, use YYYY-MM-DD"}
	}
	if r.EndDate != "" {
		end, err := time.Parse(DateLayout, r.EndDate)
		if err != nil {
			return &ErrValidation{Field: "end_date", Message: "invalid format, use YYYY-MM-DD"}
		}
		if end.Before(start) {
			return &ErrValidation{Field: "end_date", Message: "must not be before start_date"}
		}
	}
	if r.Amount < 0 {
		return &ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	return r.Rule.Validate()
}

// Validate checks that the rule uses exactly one addressing mode.
func (rr RecurrenceRule) Validate() error {
	if rr.Frequency == OneTime {
		return nil
	}
	if _, ok := intervalMonths[rr.Frequency]; !ok {
		return &ErrValidation{Field: "rule.frequency", Message: "unknown frequency " + string(rr.Frequency)}
	}
	byDay := rr.DayOfMonth != 0
	byWeekday := rr.Weekday != nil
	switch {
	case byDay && byWeekday:
		return &ErrValidation{Field: "rule", Message: "set either day_of_month or weekday, not both"}
	case byDay:
		if rr.DayOfMonth < 1 || rr.DayOfMonth > 31 {
			return &ErrValidation{Field: "rule.day_of_month", Message: "must be between 1 and 31"}
		}
	case byWeekday:
		if *rr.Weekday < time.Sunday || *rr.Weekday > time.Saturday {
			return &ErrValidation{Field: "rule.weekday", Message: "must be between 0 (Sunday) and 6 (Saturday)"}
		}
		if rr.WeekOfMonth < 1 || rr.WeekOfMonth > LastWeek {
			return &ErrValidation{Field: "rule.week_of_month", Message: "must be between 1 and 5 (5 = last)"}
		}
	}
	return nil
}

// InstancesForMonth expands the reminder into the due dates falling in the
// given month. The result has zero or one element.
func (r *Reminder) InstancesForMonth(year, month int) []time.Time {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return nil
	}
	var end time.Time
	if r.EndDate != "" {
		if end, err = time.Parse(DateLayout, r.EndDate); err != nil {
			return nil
		}
	}

	if r.Rule.Frequency == OneTime {
		if start.Year() == year && int(start.Month()) == month {
			return []time.Time{start}
		}
		return nil
	}

	step, ok := intervalMonths[r.Rule.Frequency]
	if !ok {
		return nil
	}
	diff := (year-start.Year())*12 + month - int(start.Month())
	if diff < 0 || diff%step != 0 {
		return nil
	}

	due := r.Rule.dueIn(year, time.Month(month), start.Day())
	if due.Before(start) {
		return nil
	}
	if !end.IsZero() && due.After(end) {
		return nil
	}
	return []time.Time{due}
}

// dueIn resolves the rule inside one month. A rule with no addressing mode
// falls back to the start date's day.
func (rr RecurrenceRule) dueIn(year int, month time.Month, fallbackDay int) time.Time {
	if rr.Weekday != nil {
		return NthWeekdayOfMonth(year, month, *rr.Weekday, rr.WeekOfMonth)
	}
	day := rr.DayOfMonth
	if day == 0 {
		day = fallbackDay
	}
	return ClampedDate(year, month, day)
}

// ClampedDate builds year-month-day, moving days past the end of the month to
// the month's last day (31 in February -> 28/29) instead of rolling over.
func ClampedDate(year int, month time.Month, day int) time.Time {
	last := DaysInMonth(year, month)
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NthWeekdayOfMonth returns the nth (1-4) weekday of the month, or the last
// one when n is LastWeek.
func NthWeekdayOfMonth(year int, month time.Month, wd time.Weekday, n int) time.Time {
	if n >= LastWeek {
		last := time.Date(year, month, DaysInMonth(year, month), 0, 0, 0, 0, time.UTC)
		back := (int(last.Weekday()) - int(wd) + 7) % 7
		return last.AddDate(0, 0, -back)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// Instance builds the API view of one due date as of today.
func (r *Reminder) Instance(due time.Time, today time.Time) ReminderInstance {
	key := due.Format(DateLayout)
	txID, done := r.CompletedInstances[key]
	todayKey := today.Format(DateLayout)
	return ReminderInstance{
		ReminderID:    r.ID,
		Title:         r.Title,
		Amount:        r.Amount,
		Category:      r.Category,
		DueDate:       key,
		Completed:     done,
		TransactionID: txID,
		Overdue:       !done && key < todayKey,
	}
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFuel        Category = "Fuel"
	CategoryMaintenance Category = "Maintenance"
	CategoryInsurance   Category = "Insurance"
	CategoryRepair      Category = "Repair"
	CategoryWash        Category = "Wash/Parking"
	CategoryTax         Category = "Tax"
	CategoryOther       Category = "Other"
)

const (
	PeriodAll     StatsPeriod = "all"
	PeriodMonth   StatsPeriod = "month"
	PeriodQuarter StatsPeriod = "quarter"
	PeriodYear    StatsPeriod = "year"
)

const (
	InsightWarning InsightKind = "warning"
	InsightTip     InsightKind = "tip"
	InsightSuccess InsightKind = "success"
)

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type (
	Category    string
	StatsPeriod string
	InsightKind string
	Speaker     string

	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	ExpenseRecord struct {
		ID          string   `json:"id"`
		Date        Date     `json:"date"`
		Amount      float64  `json:"amount"`
		Category    Category `json:"category"`
		Description string   `json:"description"`
		Mileage     *int     `json:"mileage,omitempty"`
	}

	VehicleProfile struct {
		Brand string `json:"brand"`
		Model string `json:"model"`
		Year  string `json:"year"`
		Plate string `json:"plate"`
		VIN   string `json:"vin"`
		Photo string `json:"photo,omitempty"`
	}

	DocumentRecord struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Image      string `json:"image"`
		ExpiryDate Date   `json:"expiryDate"`
	}

	// InsightCard is a single typed advisory message derived from
	// expense analysis. Never persisted.
	InsightCard struct {
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Kind        InsightKind `json:"kind"`
	}

	ChatTurn struct {
		Speaker   Speaker   `json:"speaker"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidMileage  = errors.New("invalid mileage")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyID         = errors.New("empty id")
)

// Categories lists every valid expense category in display order.
func Categories() []Category {
	return []Category{
		CategoryFuel,
		CategoryMaintenance,
		CategoryInsurance,
		CategoryRepair,
		CategoryWash,
		CategoryTax,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFuel, CategoryMaintenance, CategoryInsurance,
		CategoryRepair, CategoryWash, CategoryTax, CategoryOther:
		return true
	}
	return false
}

func (p StatsPeriod) Valid() bool {
	switch p {
	case PeriodAll, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

func (k InsightKind) Valid() bool {
	switch k {
	case InsightWarning, InsightTip, InsightSuccess:
		return true
	}
	return false
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM prefix used by the monthly series.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount < 0 {
		return ErrInvalidAmount
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.Mileage != nil && *e.Mileage < 0 {
		return ErrInvalidMileage
	}
	return nil
}

func (doc DocumentRecord) Validate() error {
	if strings.TrimSpace(doc.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(doc.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

package core

import (
	"errors"
	"strings"
	"time"
)

// DefaultCategoryID is the category new transactions start with.
const DefaultCategoryID = "16"

type (
	Date struct {
		time.Time
	}

	// Money is a signed amount in cents: negative values are outflows,
	// positive values are inflows.
	Money struct {
		Cents int64
	}

	// Categories maps a category id to its display name.
	Categories map[string]string

	Transaction struct {
		ID          int64
		CategoryID  string
		Description string
		Value       Money
		Date        Date
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrZeroAmount       = errors.New("amount cannot be zero")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrNotFound         = errors.New("transaction not found")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ISO returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// IsOutflow reports whether the amount leaves the budget.
func (m Money) IsOutflow() bool {
	return m.Cents < 0
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrZeroAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if !t.Date.IsZero() {
		if err := t.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the category name for id, or "" when unknown.
func (c Categories) Name(id string) string {
	return c[id]
}

// Has reports whether id is a known category.
func (c Categories) Has(id string) bool {
	_, ok := c[id]
	return ok
}

// SeedCategories is the category table shipped with a fresh install.
func SeedCategories() Categories {
	return Categories{
		"1":  "Groceries",
		"2":  "School",
		"3":  "Entertainment",
		"4":  "Utensils",
		"5":  "Restaurants",
		"6":  "Clothing",
		"7":  "Travel",
		"8":  "Rent",
		"9":  "Utilities",
		"10": "Health",
		"11": "Transport",
		"12": "Gifts",
		"13": "Insurance",
		"14": "Salary",
		"15": "Savings",
		DefaultCategoryID: "Other",
	}
}

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRSVP  = errors.New("model: invalid rsvp status")
	ErrInvalidScope = errors.New("model: invalid budget scope")
)

type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPPending, RSVPAccepted, RSVPDeclined:
		return true
	default:
		return false
	}
}

type Guest struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Side      string     `json:"side,omitempty"`
	PlusOnes  int        `json:"plus_ones"`
	RSVP      RSVPStatus `json:"rsvp"`
	Table     string     `json:"table,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (g Guest) Key() string { return g.ID }

func (g Guest) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return required("guest id")
	}
	if strings.TrimSpace(g.Name) == "" {
		return required("guest name")
	}
	if !g.RSVP.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRSVP, g.RSVP)
	}
	if g.PlusOnes < 0 {
		return &ValidationError{Field: "plus_ones", Reason: "must not be negative"}
	}
	return nil
}

func (Guest) CSVHeader() []string {
	return []string{"Name", "Email", "Phone", "Side", "Plus Ones", "RSVP", "Table"}
}

func (g Guest) CSVRow() []string {
	return []string{g.Name, g.Email, g.Phone, g.Side, fmt.Sprint(g.PlusOnes), string(g.RSVP), g.Table}
}

// BudgetScope separates the wedding budget from the bachelor/bachelorette party (JGA) budget.
type BudgetScope string

const (
	ScopeWedding BudgetScope = "wedding"
	ScopeJGA     BudgetScope = "jga"
)

func (s BudgetScope) IsValid() bool {
	return s == ScopeWedding || s == ScopeJGA
}

// BudgetItem amounts are in cents.
type BudgetItem struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	Scope     BudgetScope `json:"scope"`
	Category  string      `json:"category"`
	Name      string      `json:"name"`
	Planned   int64       `json:"planned"`
	Actual    int64       `json:"actual"`
	Paid      bool        `json:"paid"`
	VendorID  string      `json:"vendor_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (b BudgetItem) Key() string { return b.ID }

func (b BudgetItem) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return required("budget id")
	}
	if strings.TrimSpace(b.Name) == "" {
		return required("budget name")
	}
	if !b.Scope.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidScope, b.Scope)
	}
	if b.Planned < 0 || b.Actual < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	return nil
}

func (BudgetItem) CSVHeader() []string {
	return []string{"Scope", "Category", "Name", "Planned", "Actual", "Paid"}
}

func (b BudgetItem) CSVRow() []string {
	paid := "no"
	if b.Paid {
		paid = "yes"
	}
	return []string{string(b.Scope), b.Category, b.Name, FormatCents(b.Planned), FormatCents(b.Actual), paid}
}

type Vendor struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Service   string    `json:"service"`
	Contact   string    `json:"contact,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Booked    bool      `json:"booked"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (v Vendor) Key() string { return v.ID }

func (v Vendor) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return required("vendor id")
	}
	if strings.TrimSpace(v.Name) == "" {
		return required("vendor name")
	}
	if strings.TrimSpace(v.Service) == "" {
		return required("vendor service")
	}
	return nil
}

func (Vendor) CSVHeader() []string {
	return []string{"Name", "Service", "Contact", "Phone", "Booked"}
}

func (v Vendor) CSVRow() []string {
	booked := "no"
	if v.Booked {
		booked = "yes"
	}
	return []string{v.Name, v.Service, v.Contact, v.Phone, booked}
}

// FormatCents renders an amount in cents as 1234.56.
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// ParseCents reads an amount like 1234.56, 1234.5 or 1234 into cents.
func ParseCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, &ValidationError{Field: "amount", Reason: fmt.Sprintf("invalid amount %q", raw)}
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var cents int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, &ValidationError{Field: "amount", Reason: fmt.Sprintf("invalid amount %q", raw)}
		}
		cents = cents*10 + int64(r-'0')
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

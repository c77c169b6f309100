package compensation

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComponentKind decides how a component contributes to the total.
type ComponentKind string

const (
	KindBase      ComponentKind = "base"
	KindRecurring ComponentKind = "recurring"
	KindOneOff    ComponentKind = "one_off"
	KindOffset    ComponentKind = "offset" // subtracts
)

func (k ComponentKind) Valid() bool {
	switch k {
	case KindBase, KindRecurring, KindOneOff, KindOffset:
		return true
	}
	return false
}

// Compensation is the per-employee salary aggregate. Total is a cache of Total(Components).
type Compensation struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Total      decimal.Decimal
	IsActive   bool
	Components []SalaryComponent
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Joined fields
	EmployeeName *string
}

type SalaryComponent struct {
	ID             string
	CompensationID string
	Kind           ComponentKind
	Amount         decimal.Decimal
	Label          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Breakdown sums components per kind.
type Breakdown struct {
	Base      decimal.Decimal `json:"base"`
	Recurring decimal.Decimal `json:"recurring"`
	OneOff    decimal.Decimal `json:"one_off"`
	Offset    decimal.Decimal `json:"offset"`
}

func Summarize(components []SalaryComponent) Breakdown {
	var b Breakdown
	for _, c := range components {
		switch c.Kind {
		case KindBase:
			b.Base = b.Base.Add(c.Amount)
		case KindRecurring:
			b.Recurring = b.Recurring.Add(c.Amount)
		case KindOneOff:
			b.OneOff = b.OneOff.Add(c.Amount)
		case KindOffset:
			b.Offset = b.Offset.Add(c.Amount)
		}
	}
	return b
}

// Total is base + recurring + one_off - offset.
func (b Breakdown) Total() decimal.Decimal {
	return b.Base.Add(b.Recurring).Add(b.OneOff).Sub(b.Offset)
}

// Total returns the signed sum of components, rounded to cents.
func Total(components []SalaryComponent) decimal.Decimal {
	return Summarize(components).Total().Round(2)
}

// Clone copies the components for a new owner. IDs and timestamps are left for the store to assign.
func Clone(components []SalaryComponent) []SalaryComponent {
	out := make([]SalaryComponent, 0, len(components))
	for _, c := range components {
		out = append(out, SalaryComponent{
			Kind:   c.Kind,
			Amount: c.Amount,
			Label:  c.Label,
		})
	}
	return out
}

package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type PolicyName string

const (
	PolicyFixedDay   PolicyName = "fixed_day"
	PolicyActualDays PolicyName = "actual_days"
)

func (p PolicyName) Valid() bool {
	return p == PolicyFixedDay || p == PolicyActualDays
}

// ProrationPolicy turns a date range into working units. Both bounds are inclusive calendar dates.
type ProrationPolicy interface {
	WorkingUnits(start, end time.Time) int
}

// fixedDay counts the configured working weekdays, whatever the month length.
type fixedDay struct {
	weekdays [7]bool
}

func (p fixedDay) WorkingUnits(start, end time.Time) int {
	n := 0
	for d := dateOnly(start); !d.After(dateOnly(end)); d = d.AddDate(0, 0, 1) {
		if p.weekdays[d.Weekday()] {
			n++
		}
	}
	return n
}

// actualDays counts calendar days.
type actualDays struct{}

func (actualDays) WorkingUnits(start, end time.Time) int {
	s, e := dateOnly(start), dateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// NewProrationPolicy builds the policy named in settings.
func NewProrationPolicy(s Settings) (ProrationPolicy, error) {
	switch s.ProrationPolicy {
	case PolicyFixedDay:
		var p fixedDay
		for _, wd := range s.WorkingWeekdays {
			if wd < 0 || wd > 6 {
				return nil, ErrInvalidWorkingWeekday
			}
			p.weekdays[wd] = true
		}
		return p, nil
	case PolicyActualDays:
		return actualDays{}, nil
	}
	return nil, ErrUnknownProration
}

// Prorate scales amount by units/periodUnits, rounded to cents. A non-positive period yields zero.
func Prorate(amount decimal.Decimal, units, periodUnits int) decimal.Decimal {
	if periodUnits <= 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromInt(int64(units)).Div(decimal.NewFromInt(int64(periodUnits)))
	return amount.Mul(ratio).Round(2)
}

// EmploymentOverlap clips the period to the employee's hire and termination dates.
// ok is false when the employee was not employed at any point in the period.
func EmploymentOverlap(periodStart, periodEnd, hired time.Time, terminated *time.Time) (start, end time.Time, ok bool) {
	start, end = dateOnly(periodStart), dateOnly(periodEnd)
	if !hired.IsZero() && dateOnly(hired).After(start) {
		start = dateOnly(hired)
	}
	if terminated != nil && dateOnly(*terminated).Before(end) {
		end = dateOnly(*terminated)
	}
	return start, end, !end.Before(start)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

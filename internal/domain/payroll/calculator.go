package payroll

import (
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// CalcInput is everything one employee's record is derived from.
type CalcInput struct {
	Cycle        Cycle
	Settings     Settings
	Policy       ProrationPolicy
	Employee     employee.Employee
	Compensation *compensation.Compensation // nil when the employee has none
	Totals       AttendanceTotals
}

// Calculate derives a payroll record. It never fails: missing inputs yield zero amounts and a warning.
// An employee with no employment days in the period gets an all-zero record.
//
// The hourly rate is base / (period units × standard hours). Overtime is paid at rate × multiplier,
// deficit is deducted at rate, and net is the component total (with the prorated base) plus that
// adjustment.
func Calculate(in CalcInput) Record {
	rec := Record{
		CompanyID:       in.Cycle.CompanyID,
		CycleID:         in.Cycle.ID,
		EmployeeID:      in.Employee.ID,
		PeriodStart:     in.Cycle.PeriodStart,
		PeriodEnd:       in.Cycle.PeriodEnd,
		Components:      []ComponentSnapshot{},
		OvertimeSeconds: in.Totals.OvertimeSeconds,
		DeficitSeconds:  in.Totals.DeficitSeconds,
	}

	start, end, employed := EmploymentOverlap(in.Cycle.PeriodStart, in.Cycle.PeriodEnd, in.Employee.HireDate, in.Employee.TerminationDate)
	if !employed {
		rec.warn(ErrNotEmployedInPeriod)
		return rec
	}
	if in.Compensation == nil {
		rec.warn(ErrMissingCompensation)
		return rec
	}

	for _, c := range in.Compensation.Components {
		rec.Components = append(rec.Components, ComponentSnapshot{Kind: string(c.Kind), Label: c.Label, Amount: c.Amount})
	}
	b := compensation.Summarize(in.Compensation.Components)
	rec.Base = b.Base.Round(2)
	rec.Recurring = b.Recurring.Round(2)
	rec.OneOff = b.OneOff.Round(2)
	rec.Offset = b.Offset.Round(2)

	periodUnits := in.Policy.WorkingUnits(in.Cycle.PeriodStart, in.Cycle.PeriodEnd)
	if periodUnits <= 0 {
		rec.warn(ErrEmptyPeriod)
	}
	rec.ProratedBase = Prorate(rec.Base, in.Policy.WorkingUnits(start, end), periodUnits)
	rec.Gross = rec.ProratedBase.Add(rec.Recurring).Add(rec.OneOff).Sub(rec.Offset).Round(2)

	rate := HourlyRate(rec.Base, periodUnits, in.Settings.StandardHours)
	rec.OvertimePay = rate.Mul(in.Settings.OvertimeMultiplier).Mul(hours(rec.OvertimeSeconds)).Round(2)
	rec.DeficitDeduction = rate.Mul(hours(rec.DeficitSeconds)).Round(2)
	rec.AttendanceAdjustment = rec.OvertimePay.Sub(rec.DeficitDeduction)
	rec.Net = rec.Gross.Add(rec.AttendanceAdjustment)
	return rec
}

func (r *Record) warn(err error) {
	msg := err.Error()
	r.Warning = &msg
}

// HourlyRate is base spread over the period's working hours, to four places.
func HourlyRate(base decimal.Decimal, periodUnits, standardHours int) decimal.Decimal {
	denom := periodUnits * standardHours
	if denom <= 0 || base.IsZero() {
		return decimal.Zero
	}
	return base.Div(decimal.NewFromInt(int64(denom))).Round(4)
}

func hours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour)
}

package payroll

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

var (
	minutesPerHour = decimal.NewFromInt(60)
	halfDayHours   = decimal.NewFromInt(HalfDayHours)
	holidayHours   = decimal.NewFromInt(HolidayHours)
)

// BreakdownRow is one attendance day priced at the hourly rate.
type BreakdownRow struct {
	Date     time.Time
	Status   attendance.Status
	CheckIn  *time.Time
	CheckOut *time.Time
	Hours    decimal.Decimal
	DailyPay decimal.Decimal
}

// Breakdown is the month's computed pay. It is derived, never stored.
type Breakdown struct {
	Period      Period
	BaseSalary  decimal.Decimal
	HourlyRate  decimal.Decimal
	Rows        []BreakdownRow
	TotalDays   int
	PresentDays int
	TotalHours  decimal.Decimal
	TotalPay    decimal.Decimal
}

// NetSalary of a breakdown is its total pay; bonus and deductions only
// apply to a generated slip.
func (b Breakdown) NetSalary() decimal.Decimal {
	return b.TotalPay
}

// HourlyRate spreads the monthly base over the standard plan.
func HourlyRate(baseSalary decimal.Decimal) decimal.Decimal {
	return baseSalary.
		Div(decimal.NewFromInt(StandardDays)).
		Div(decimal.NewFromInt(StandardHours))
}

// DayHours credits recorded minutes first, then the fixed allowance for an
// approved half-day or a holiday.
func DayHours(a attendance.Attendance) decimal.Decimal {
	if a.DurationMinutes > 0 {
		return decimal.NewFromInt(int64(a.DurationMinutes)).Div(minutesPerHour).Round(2)
	}
	switch attendance.DeriveStatus(a) {
	case attendance.StatusHalfDay:
		return halfDayHours
	case attendance.StatusHoliday:
		return holidayHours
	}
	return decimal.Zero
}

// Calculate prices records for the period. It has no side effects, so the
// same inputs always produce the same breakdown.
func Calculate(period Period, baseSalary decimal.Decimal, records []attendance.Attendance) Breakdown {
	rate := HourlyRate(baseSalary)

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b attendance.Attendance) int {
		return a.Date.Compare(b.Date)
	})

	b := Breakdown{
		Period:     period,
		BaseSalary: baseSalary,
		HourlyRate: rate,
		Rows:       make([]BreakdownRow, 0, len(sorted)),
		TotalDays:  StandardDays,
		TotalHours: decimal.Zero,
		TotalPay:   decimal.Zero,
	}

	for _, rec := range sorted {
		hours := DayHours(rec)
		dailyPay := hours.Mul(rate).Round(0)

		b.Rows = append(b.Rows, BreakdownRow{
			Date:     rec.Date,
			Status:   attendance.DeriveStatus(rec),
			CheckIn:  rec.CheckIn.Time,
			CheckOut: rec.CheckOut.Time,
			Hours:    hours,
			DailyPay: dailyPay,
		})

		if hours.IsPositive() {
			b.PresentDays++
			b.TotalHours = b.TotalHours.Add(hours)
			b.TotalPay = b.TotalPay.Add(dailyPay)
		}
	}

	return b
}

// Finalize freezes the breakdown into slip figures. Pay is recomputed from
// total hours, so it can differ from the sum of rounded daily pay.
func (b Breakdown) Finalize(employeeID string, bonus, deductions decimal.Decimal) PayrollRecord {
	calculated := b.TotalHours.Mul(b.HourlyRate).Round(0)
	return PayrollRecord{
		EmployeeID:          employeeID,
		Month:               b.Period.Month,
		Year:                b.Period.Year,
		BaseSalary:          b.BaseSalary,
		HourlyRate:          b.HourlyRate,
		TotalDays:           b.TotalDays,
		PresentDays:         b.PresentDays,
		TotalHours:          b.TotalHours,
		CalculatedWithHours: calculated,
		Bonus:               bonus,
		Deductions:          deductions,
		NetSalary:           calculated.Add(bonus).Sub(deductions),
		Status:              PayrollStatusGenerated,
	}
}

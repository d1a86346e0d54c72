// Package fine computes the monetary penalty owed on a late return.
package fine

import (
	"math"
	"time"
)

// Default calculator settings. The fine accrues per whole day late; the
// day-vs-hour ambiguity in earlier revisions of the fine policy is resolved
// to days, matching the dominant convention.
const (
	// DefaultUnit is the lateness unit a fine is charged per.
	DefaultUnit = 24 * time.Hour

	// DefaultRate is the amount charged per unit late.
	DefaultRate = 0.10
)

// Calculator computes fines from a due date and the current time. It is a
// pure value: no I/O, no clock access, fully deterministic for given inputs.
type Calculator struct {
	// Unit is the lateness unit a fine is charged per. Partial units round up,
	// so a return one minute past due owes a full unit.
	Unit time.Duration

	// Rate is the amount charged per unit.
	Rate float64
}

// NewCalculator returns a Calculator with the given unit and rate,
// substituting defaults for non-positive values.
func NewCalculator(unit time.Duration, rate float64) Calculator {
	if unit <= 0 {
		unit = DefaultUnit
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	return Calculator{Unit: unit, Rate: rate}
}

// Fine returns the amount owed on a loan due at dueDate when returned at now.
// Returns 0 when now is at or before the due date. Otherwise the lateness is
// divided into whole units, any partial unit counts as a full one, and each
// unit is charged at the configured rate.
func (c Calculator) Fine(dueDate, now time.Time) float64 {
	if !now.After(dueDate) {
		return 0
	}

	unitsLate := math.Ceil(float64(now.Sub(dueDate)) / float64(c.Unit))
	return unitsLate * c.Rate
}

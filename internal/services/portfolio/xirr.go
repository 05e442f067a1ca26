package portfolio

import (
	"math"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

const (
	xirrTolerance     = 1e-4
	xirrMaxIterations = 100
	xirrInitialGuess  = 0.10
	daysPerYear       = 365.0
)

// xirrFlow is a cash flow reduced to years-free form for the NPV function.
type xirrFlow struct {
	days   float64
	amount float64
}

// SolveXIRR finds the annual rate r at which the net present value of flows is
// zero, using Newton-Raphson from r=0.10 with a forward-difference derivative.
// Amounts are signed: negative for money invested, positive for money returned.
// The second return value is false when the iteration does not converge, the
// rate is not finite, or the flows do not contain both signs.
func SolveXIRR(flows []models.CashFlow) (float64, bool) {
	if len(flows) < 2 {
		return 0, false
	}

	earliest := flows[0].Date
	for _, cf := range flows[1:] {
		if cf.Date.Before(earliest) {
			earliest = cf.Date
		}
	}

	points := make([]xirrFlow, 0, len(flows))
	hasNeg, hasPos := false, false
	for _, cf := range flows {
		amount := cf.Amount.InexactFloat64()
		switch {
		case amount < 0:
			hasNeg = true
		case amount > 0:
			hasPos = true
		}
		points = append(points, xirrFlow{days: daysBetween(earliest, cf.Date), amount: amount})
	}
	if !hasNeg || !hasPos {
		return 0, false
	}

	rate := xirrInitialGuess
	for i := 0; i < xirrMaxIterations; i++ {
		value := npv(points, rate)
		derivative := (npv(points, rate+xirrTolerance) - value) / xirrTolerance
		if math.Abs(derivative) < xirrTolerance {
			derivative = xirrTolerance
		}

		next := rate - value/derivative
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		if math.Abs(next-rate) < xirrTolerance {
			return next, true
		}
		rate = next
	}

	return 0, false
}

// npv discounts each flow by (1+r)^(days/365).
func npv(points []xirrFlow, rate float64) float64 {
	total := 0.0
	for _, p := range points {
		total += p.amount / math.Pow(1+rate, p.days/daysPerYear)
	}
	return total
}

func daysBetween(from, to time.Time) float64 {
	return math.Round(to.Sub(from).Hours() / 24)
}

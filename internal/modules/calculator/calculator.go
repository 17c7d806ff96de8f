// Package calculator answers "what would an investment made N years ago be
// worth today" from a price history and a current price.
package calculator

import (
	"errors"
	"math"
	"time"
)

// daysPerYear is used to turn elapsed time into fractional years.
const daysPerYear = 365.25

// Presets are the supported look-back horizons in years.
var Presets = []int{1, 3, 5, 10}

// ErrInvalidYears is returned for a horizon outside Presets.
var ErrInvalidYears = errors.New("years back must be one of 1, 3, 5, 10")

// PricePoint is one observation of a price series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Input holds everything Calculate needs.
type Input struct {
	History          []PricePoint
	InvestmentAmount float64
	CurrentPrice     float64
	YearsBack        int
	Now              time.Time
}

// Result is a completed investment calculation.
type Result struct {
	InvestmentDate   time.Time `json:"investmentDate"`
	InvestmentPrice  float64   `json:"investmentPrice"`
	InvestmentAmount float64   `json:"investmentAmount"`
	CurrentPrice     float64   `json:"currentPrice"`
	Shares           float64   `json:"shares"`
	CurrentValue     float64   `json:"currentValue"`
	Profit           float64   `json:"profit"`
	ProfitPercent    float64   `json:"profitPercent"`
	ActualYears      float64   `json:"actualYears"`
	CAGR             float64   `json:"cagr"`
}

// IsPreset reports whether years is a supported horizon.
func IsPreset(years int) bool {
	for _, p := range Presets {
		if p == years {
			return true
		}
	}
	return false
}

// TargetDate is the date the investment is assumed to have been made.
func TargetDate(now time.Time, yearsBack int) time.Time {
	return now.AddDate(-yearsBack, 0, 0)
}

// ClosestPoint returns the index of the point nearest to target. Ties keep
// the earlier point in the sequence. It returns -1 for an empty series.
func ClosestPoint(history []PricePoint, target time.Time) int {
	if len(history) == 0 {
		return -1
	}

	best := 0
	bestDist := absDuration(history[0].Date.Sub(target))
	for i := 1; i < len(history); i++ {
		if d := absDuration(history[i].Date.Sub(target)); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Calculate computes the outcome of investing InvestmentAmount at the price
// closest to Now minus YearsBack. The boolean is false when no meaningful
// result exists: fewer than two points, a non-positive amount or historical
// price, a current price that is not a finite number, or an amount large
// enough that the outcome overflows.
func Calculate(in Input) (Result, bool) {
	if len(in.History) < 2 {
		return Result{}, false
	}
	if !(in.InvestmentAmount > 0) || math.IsInf(in.InvestmentAmount, 0) {
		return Result{}, false
	}
	if math.IsNaN(in.CurrentPrice) || math.IsInf(in.CurrentPrice, 0) || in.CurrentPrice < 0 {
		return Result{}, false
	}

	i := ClosestPoint(in.History, TargetDate(in.Now, in.YearsBack))
	point := in.History[i]
	if !(point.Price > 0) || math.IsInf(point.Price, 0) {
		return Result{}, false
	}

	shares := in.InvestmentAmount / point.Price
	currentValue := shares * in.CurrentPrice
	profit := currentValue - in.InvestmentAmount
	profitPercent := profit / in.InvestmentAmount * 100
	// Huge amounts can overflow to Inf even when every input is finite
	if !finite(shares, currentValue, profit, profitPercent) {
		return Result{}, false
	}
	actualYears := in.Now.Sub(point.Date).Hours() / 24 / daysPerYear

	return Result{
		InvestmentDate:   point.Date,
		InvestmentPrice:  point.Price,
		InvestmentAmount: in.InvestmentAmount,
		CurrentPrice:     in.CurrentPrice,
		Shares:           shares,
		CurrentValue:     currentValue,
		Profit:           profit,
		ProfitPercent:    profitPercent,
		ActualYears:      actualYears,
		CAGR:             cagr(currentValue, in.InvestmentAmount, actualYears),
	}, true
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// cagr is the compound annual growth rate as a fraction (0.12 = 12%).
func cagr(endValue, startValue, years float64) float64 {
	if years <= 0 || startValue <= 0 || endValue < 0 {
		return 0
	}
	g := math.Pow(endValue/startValue, 1/years) - 1
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 0
	}
	return g
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

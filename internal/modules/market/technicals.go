package market

import (
	"context"
	"fmt"

	"github.com/aristath/sharesathi/internal/utils"
	"github.com/aristath/sharesathi/pkg/formulas"
)

// ComputeTechnicals derives indicators from daily closes, oldest first.
func ComputeTechnicals(symbol string, points []PricePoint) (*Technicals, error) {
	closes := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Close > 0 {
			closes = append(closes, p.Close)
		}
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("%w: no closes for %s", ErrUnavailable, symbol)
	}

	t := &Technicals{
		Symbol:       utils.DisplaySymbol(symbol),
		LastClose:    closes[len(closes)-1],
		SMA20:        formulas.SMA(closes, 20),
		SMA50:        formulas.SMA(closes, 50),
		RSI14:        formulas.RSI(closes, 14),
		Volatility:   utils.Round(formulas.AnnualizedVolatility(formulas.LogReturns(closes)), 4),
		MaxDrawdown:  utils.Round(formulas.MaxDrawdown(closes), 4),
		Observations: len(closes),
		AsOf:         points[len(points)-1].Date,
	}
	if t.RSI14 != nil {
		t.RSIZone = formulas.RSIZone(*t.RSI14)
	}

	window := closes
	if len(window) > formulas.TradingDaysPerYear {
		window = window[len(window)-formulas.TradingDaysPerYear:]
	}
	t.FiftyTwoWeekLow, t.FiftyTwoWeekHigh = formulas.MinMax(window)
	if pos, ok := utils.FiftyTwoWeekPosition(t.LastClose, t.FiftyTwoWeekLow, t.FiftyTwoWeekHigh); ok {
		t.FiftyTwoWeekPosition = &pos
	}
	return t, nil
}

// Technicals computes indicators over one year of daily history.
func (s *Service) Technicals(ctx context.Context, symbol string) (*Technicals, error) {
	points, err := s.History(ctx, symbol, "1y")
	if err != nil {
		return nil, err
	}
	return ComputeTechnicals(symbol, points)
}

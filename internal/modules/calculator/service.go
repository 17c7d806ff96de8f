package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// ErrInvalidAmount is returned for a non-positive or non-finite amount.
var ErrInvalidAmount = errors.New("investment amount must be a positive number")

// Built-in defaults used when no Defaults provider is configured.
const (
	DefaultAmount    = 10000
	DefaultYearsBack = 5
)

// historyRanges maps each preset to a history range that reaches past the
// target date, with an interval coarse enough to keep the series short.
var historyRanges = map[int]string{
	1:  "2y",
	3:  "5y",
	5:  "10y",
	10: "max",
}

// HistoryRange returns the history range fetched for a preset.
func HistoryRange(yearsBack int) string {
	if rng, ok := historyRanges[yearsBack]; ok {
		return rng
	}
	return "max"
}

// MarketData is the market.Service surface used by the calculator.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (*market.Quote, error)
	History(ctx context.Context, symbol, rng string) ([]market.PricePoint, error)
}

// Defaults supplies the user's preferred amount and horizon.
type Defaults interface {
	InvestmentDefaults() (amount float64, yearsBack int)
}

// Request asks for one what-if calculation. Zero Amount or YearsBack take
// the configured defaults.
type Request struct {
	Symbol    string
	Amount    float64
	YearsBack int
}

// Price sources for Outcome.PriceSource.
const (
	PriceFromQuote   = "quote"
	PriceFromHistory = "history"
)

// Outcome is a calculation served to clients. Result is nil when the
// calculation is undefined for the available data.
type Outcome struct {
	Symbol      string     `json:"symbol"`
	YearsBack   int        `json:"yearsBack"`
	Amount      float64    `json:"amount"`
	Result      *Result    `json:"result"`
	Formatted   *Formatted `json:"formatted,omitempty"`
	Available   bool       `json:"available"`
	PriceSource string     `json:"priceSource,omitempty"`
	Stale       bool       `json:"stale,omitempty"`
}

// Formatted carries display strings for a Result.
type Formatted struct {
	InvestmentAmount string `json:"investmentAmount"`
	InvestmentPrice  string `json:"investmentPrice"`
	CurrentPrice     string `json:"currentPrice"`
	CurrentValue     string `json:"currentValue"`
	Profit           string `json:"profit"`
	ProfitPercent    string `json:"profitPercent"`
	CAGR             string `json:"cagr"`
	InvestmentDate   string `json:"investmentDate"`
	Shares           string `json:"shares"`
}

// Service runs calculations against live market data.
type Service struct {
	market   MarketData
	defaults Defaults
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a calculator service. defaults may be nil.
func NewService(md MarketData, defaults Defaults, log zerolog.Logger) *Service {
	return &Service{
		market:   md,
		defaults: defaults,
		log:      log.With().Str("service", "calculator").Logger(),
		now:      time.Now,
	}
}

// Defaults returns the amount and horizon applied to empty request fields.
func (s *Service) Defaults() (float64, int) {
	if s.defaults == nil {
		return DefaultAmount, DefaultYearsBack
	}
	amount, years := s.defaults.InvestmentDefaults()
	if !(amount > 0) || math.IsInf(amount, 0) {
		amount = DefaultAmount
	}
	if !IsPreset(years) {
		years = DefaultYearsBack
	}
	return amount, years
}

// Calculate runs one what-if calculation. Invalid input is an error; missing
// market data gives an Outcome with Available false.
func (s *Service) Calculate(ctx context.Context, req Request) (*Outcome, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	quote, qerr := s.market.Quote(ctx, req.Symbol)
	if qerr != nil && !errors.Is(qerr, market.ErrUnavailable) {
		return nil, qerr
	}
	return s.calculate(ctx, req, quote)
}

// Compare runs the calculation for every preset horizon with one quote lookup.
func (s *Service) Compare(ctx context.Context, symbol string, amount float64) ([]Outcome, error) {
	req, err := s.normalize(Request{Symbol: symbol, Amount: amount, YearsBack: Presets[0]})
	if err != nil {
		return nil, err
	}

	quote, qerr := s.market.Quote(ctx, req.Symbol)
	if qerr != nil && !errors.Is(qerr, market.ErrUnavailable) {
		return nil, qerr
	}

	outcomes := make([]Outcome, len(Presets))
	errs := make([]error, len(Presets))

	p := pool.New().WithMaxGoroutines(len(Presets))
	for i, years := range Presets {
		p.Go(func() {
			r := req
			r.YearsBack = years
			out, err := s.calculate(ctx, r, quote)
			if err != nil {
				errs[i] = err
				return
			}
			outcomes[i] = *out
		})
	}
	p.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Service) normalize(req Request) (Request, error) {
	req.Symbol = utils.NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return req, market.ErrInvalidSymbol
	}

	defAmount, defYears := s.Defaults()
	if req.Amount == 0 {
		req.Amount = defAmount
	}
	if !(req.Amount > 0) || math.IsInf(req.Amount, 0) {
		return req, ErrInvalidAmount
	}

	if req.YearsBack == 0 {
		req.YearsBack = defYears
	}
	if !IsPreset(req.YearsBack) {
		return req, fmt.Errorf("%w: got %d", ErrInvalidYears, req.YearsBack)
	}
	return req, nil
}

func (s *Service) calculate(ctx context.Context, req Request, quote *market.Quote) (*Outcome, error) {
	out := &Outcome{Symbol: utils.DisplaySymbol(req.Symbol), YearsBack: req.YearsBack, Amount: req.Amount}

	points, err := s.market.History(ctx, req.Symbol, HistoryRange(req.YearsBack))
	if errors.Is(err, market.ErrUnavailable) {
		s.log.Debug().Err(err).Str("symbol", req.Symbol).Msg("No history for calculation")
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	history := make([]PricePoint, len(points))
	for i, p := range points {
		history[i] = PricePoint{Date: p.Date, Price: p.Close}
	}

	var current float64
	switch {
	case quote != nil && quote.Price > 0:
		current = quote.Price
		out.PriceSource = PriceFromQuote
		out.Stale = quote.Stale
	case len(history) > 0:
		current = history[len(history)-1].Price
		out.PriceSource = PriceFromHistory
	default:
		return out, nil
	}

	result, ok := Calculate(Input{
		History:          history,
		InvestmentAmount: req.Amount,
		CurrentPrice:     current,
		YearsBack:        req.YearsBack,
		Now:              s.now(),
	})
	if !ok {
		out.PriceSource = ""
		out.Stale = false
		return out, nil
	}

	out.Result = &result
	out.Formatted = Format(result)
	out.Available = true
	return out, nil
}

// Format renders a Result for display in rupees with Indian digit grouping.
func Format(r Result) *Formatted {
	return &Formatted{
		InvestmentAmount: utils.FormatINR(r.InvestmentAmount),
		InvestmentPrice:  utils.FormatINR(r.InvestmentPrice),
		CurrentPrice:     utils.FormatINR(r.CurrentPrice),
		CurrentValue:     utils.FormatINR(r.CurrentValue),
		Profit:           utils.FormatINR(r.Profit),
		ProfitPercent:    utils.FormatIndianDecimal(r.ProfitPercent, 2) + "%",
		CAGR:             utils.FormatIndianDecimal(r.CAGR*100, 2) + "%",
		InvestmentDate:   r.InvestmentDate.Format("2 Jan 2006"),
		Shares:           utils.FormatIndianDecimal(r.Shares, 4),
	}
}

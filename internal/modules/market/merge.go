package market

import (
	"sort"

	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/utils"
)

// MergeRows combines two row lists keyed by symbol. Rows keep the order in
// which their symbol first appears (primary first, then secondary-only
// symbols). A primary row without a price takes its price fields from the
// matching secondary row.
func MergeRows(primary, secondary []nse.Constituent) []nse.Constituent {
	fill := make(map[string]nse.Constituent, len(secondary))
	for _, r := range secondary {
		sym := utils.NormalizeSymbol(r.Symbol)
		if _, ok := fill[sym]; !ok && sym != "" {
			fill[sym] = r
		}
	}

	seen := make(map[string]bool, len(primary)+len(secondary))
	out := make([]nse.Constituent, 0, len(primary)+len(secondary))

	for _, r := range primary {
		r.Symbol = utils.NormalizeSymbol(r.Symbol)
		if r.Symbol == "" || seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true

		if src, ok := fill[r.Symbol]; ok && r.Price <= 0 && src.Price > 0 {
			r = fillPrices(r, src)
		}
		out = append(out, r)
	}

	for _, r := range secondary {
		r.Symbol = utils.NormalizeSymbol(r.Symbol)
		if r.Symbol == "" || seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		out = append(out, r)
	}
	return out
}

func fillPrices(dst, src nse.Constituent) nse.Constituent {
	dst.Price = src.Price
	dst.Change = src.Change
	dst.ChangePercent = src.ChangePercent
	dst.PreviousClose = src.PreviousClose
	if dst.DayHigh <= 0 {
		dst.DayHigh = src.DayHigh
	}
	if dst.DayLow <= 0 {
		dst.DayLow = src.DayLow
	}
	if dst.FiftyTwoWeekHigh <= 0 {
		dst.FiftyTwoWeekHigh = src.FiftyTwoWeekHigh
	}
	if dst.FiftyTwoWeekLow <= 0 {
		dst.FiftyTwoWeekLow = src.FiftyTwoWeekLow
	}
	if dst.Volume == 0 {
		dst.Volume = src.Volume
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	return dst
}

// TopMovers returns up to n priced rows with the highest and the lowest
// change percent. Gainers only include rising rows and losers only falling ones.
func TopMovers(rows []nse.Constituent, n int) (gainers, losers []nse.Constituent) {
	gainers, losers = []nse.Constituent{}, []nse.Constituent{}
	if n <= 0 {
		return gainers, losers
	}

	for _, r := range rows {
		switch {
		case r.Price <= 0:
		case r.ChangePercent > 0:
			gainers = append(gainers, r)
		case r.ChangePercent < 0:
			losers = append(losers, r)
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].ChangePercent > gainers[j].ChangePercent })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].ChangePercent < losers[j].ChangePercent })

	if len(gainers) > n {
		gainers = gainers[:n]
	}
	if len(losers) > n {
		losers = losers[:n]
	}
	return gainers, losers
}

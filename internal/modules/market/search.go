package market

import (
	"sort"
	"strings"

	"github.com/aristath/sharesathi/internal/clients/nse"
	"github.com/aristath/sharesathi/internal/utils"
	"github.com/mozillazg/go-unidecode"
)

// DefaultSearchLimit caps Search results when no limit is given.
const DefaultSearchLimit = 10

func (s *Service) remember(in Instrument) {
	in.Symbol = utils.NormalizeSymbol(in.Symbol)
	if in.Symbol == "" {
		return
	}

	s.knownMu.Lock()
	if prev, ok := s.known[in.Symbol]; !ok || prev.Name == "" {
		s.known[in.Symbol] = in
	}
	s.knownMu.Unlock()
}

func (s *Service) rememberRows(rows []nse.Constituent) {
	for _, r := range rows {
		s.remember(Instrument{Symbol: r.Symbol, Name: r.Name})
	}
}

// Search matches query against the symbols and names of every known listing:
// the seed list plus constituents of any index table served so far. Matching
// ignores case and diacritics. Prefix matches rank before substring matches;
// ties sort by symbol.
func (s *Service) Search(query string, limit int) []Instrument {
	q := foldText(query)
	if q == "" {
		return []Instrument{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.knownMu.RLock()
	candidates := make([]Instrument, 0, len(s.known))
	for _, in := range s.known {
		candidates = append(candidates, in)
	}
	s.knownMu.RUnlock()

	return rankMatches(candidates, q, limit)
}

func rankMatches(candidates []Instrument, q string, limit int) []Instrument {
	var prefix, contains []Instrument
	for _, in := range candidates {
		sym, name := foldText(in.Symbol), foldText(in.Name)
		switch {
		case strings.HasPrefix(sym, q) || hasWordPrefix(name, q):
			prefix = append(prefix, in)
		case strings.Contains(sym, q) || strings.Contains(name, q):
			contains = append(contains, in)
		}
	}

	sortBySymbol(prefix)
	sortBySymbol(contains)

	out := append(prefix, contains...)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Instrument{}
	}
	return out
}

func hasWordPrefix(text, q string) bool {
	if strings.HasPrefix(text, q) {
		return true
	}
	for _, w := range strings.Fields(text) {
		if strings.HasPrefix(w, q) {
			return true
		}
	}
	return false
}

func sortBySymbol(list []Instrument) {
	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })
}

// foldText lower-cases, transliterates to ASCII and collapses whitespace.
func foldText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(s))), " ")
}

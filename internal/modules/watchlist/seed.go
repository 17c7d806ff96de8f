package watchlist

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aristath/sharesathi/internal/utils"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// SeedSymbol is one entry of the default watchlist seed.
type SeedSymbol struct {
	Ticker string `yaml:"ticker" json:"ticker"`
	Name   string `yaml:"name" json:"name"`
}

// Seed is the static content of the read-only default watchlist.
type Seed struct {
	Name    string       `yaml:"name"`
	Index   string       `yaml:"index"`
	Symbols []SeedSymbol `yaml:"symbols"`
}

// Tickers returns the seed tickers in file order.
func (s Seed) Tickers() []string {
	out := make([]string, len(s.Symbols))
	for i, sym := range s.Symbols {
		out[i] = sym.Ticker
	}
	return out
}

// ParseSeed decodes and normalizes a seed document: tickers are upper-cased,
// blanks and duplicates dropped, order kept, and the list capped at MaxSymbols.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("failed to parse watchlist seed: %w", err)
	}

	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Seed{}, fmt.Errorf("watchlist seed has no name")
	}

	seen := make(map[string]bool, len(s.Symbols))
	out := make([]SeedSymbol, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		sym.Ticker = utils.NormalizeSymbol(sym.Ticker)
		if sym.Ticker == "" || seen[sym.Ticker] {
			continue
		}
		seen[sym.Ticker] = true
		sym.Name = strings.TrimSpace(sym.Name)
		out = append(out, sym)
		if len(out) == MaxSymbols {
			break
		}
	}
	if len(out) == 0 {
		return Seed{}, fmt.Errorf("watchlist seed is empty")
	}
	s.Symbols = out
	return s, nil
}

// DefaultSeed returns the embedded NIFTY 50 seed.
func DefaultSeed() (Seed, error) {
	return ParseSeed(defaultsYAML)
}

package utils

import "strings"

// Exchange suffixes used by Yahoo Finance for Indian listings.
const (
	SuffixNSE = ".NS"
	SuffixBSE = ".BO"
)

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// YahooSymbol maps a ticker to its Yahoo Finance form. Index symbols (^NSEI)
// and symbols that already carry an exchange suffix pass through; bare
// tickers are assumed to be NSE listings.
func YahooSymbol(s string) string {
	s = NormalizeSymbol(s)
	if s == "" || strings.HasPrefix(s, "^") || strings.Contains(s, ".") {
		return s
	}
	return s + SuffixNSE
}

// DisplaySymbol strips the Indian exchange suffix from a Yahoo ticker.
func DisplaySymbol(s string) string {
	s = NormalizeSymbol(s)
	for _, suffix := range []string{SuffixNSE, SuffixBSE} {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

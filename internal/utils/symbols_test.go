package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "RELIANCE", NormalizeSymbol("  reliance "))
	assert.Equal(t, "", NormalizeSymbol("   "))
}

func TestYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"tcs", "TCS.NS"},
		{"TCS.NS", "TCS.NS"},
		{"500325.bo", "500325.BO"},
		{"^NSEI", "^NSEI"},
		{"^bsesn", "^BSESN"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, YahooSymbol(tt.input))
		})
	}
}

func TestDisplaySymbol(t *testing.T) {
	assert.Equal(t, "INFY", DisplaySymbol("infy.ns"))
	assert.Equal(t, "500325", DisplaySymbol("500325.BO"))
	assert.Equal(t, "^NSEI", DisplaySymbol("^NSEI"))
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single feed",
			input:    "https://example.com/rss",
			expected: []string{"https://example.com/rss"},
		},
		{
			name:     "varied spacing",
			input:    "a.xml,  b.xml , c.xml",
			expected: []string{"a.xml", "b.xml", "c.xml"},
		},
		{
			name:     "leading and trailing commas",
			input:    ",a.xml,",
			expected: []string{"a.xml"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "comma only",
			input:    ",",
			expected: nil,
		},
		{
			name:     "duplicates dropped",
			input:    "a.xml, b.xml, a.xml",
			expected: []string{"a.xml", "b.xml"},
		},
		{
			name:     "internal spaces preserved",
			input:    "Nifty Bank, Nifty IT",
			expected: []string{"Nifty Bank", "Nifty IT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

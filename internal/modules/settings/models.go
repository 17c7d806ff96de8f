package settings

import (
	"errors"
	"fmt"
	"strconv"
)

// User preference keys.
const (
	KeyDefaultInvestmentAmount = "default_investment_amount"
	KeyDefaultYearsBack        = "default_years_back"
	KeyChatProvider            = "chat_provider"
	KeyTheme                   = "theme"
)

// ErrUnknownSetting is returned for keys outside the preference whitelist.
var ErrUnknownSetting = errors.New("unknown setting")

// ErrInvalidValue is returned when a value fails its setting's validation.
var ErrInvalidValue = errors.New("invalid setting value")

// Definition describes one user-editable setting.
type Definition struct {
	Key         string `json:"key"`
	Default     string `json:"default"`
	Description string `json:"description"`
	validate    func(string) error
}

// Definitions is the whitelist of user-editable settings.
var Definitions = []Definition{
	{
		Key:         KeyDefaultInvestmentAmount,
		Default:     "10000",
		Description: "Amount in INR pre-filled in the what-if calculator",
		validate: func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("must be a positive number")
			}
			return nil
		},
	},
	{
		Key:         KeyDefaultYearsBack,
		Default:     "5",
		Description: "Horizon in years pre-selected in the what-if calculator (1, 3, 5 or 10)",
		validate:    oneOf("1", "3", "5", "10"),
	},
	{
		Key:         KeyChatProvider,
		Default:     "auto",
		Description: "Preferred chat provider: auto, groq, gemini or local",
		validate:    oneOf("auto", "groq", "gemini", "local"),
	},
	{
		Key:         KeyTheme,
		Default:     "system",
		Description: "UI theme: light, dark or system",
		validate:    oneOf("light", "dark", "system"),
	},
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, d := range Definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Validate checks value against the definition.
func (d Definition) Validate(value string) error {
	if d.validate == nil {
		return nil
	}
	if err := d.validate(value); err != nil {
		return fmt.Errorf("%w: %s %v", ErrInvalidValue, d.Key, err)
	}
	return nil
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", allowed)
	}
}

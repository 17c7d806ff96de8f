package chat

import (
	"context"
	"strings"

	"github.com/aristath/sharesathi/internal/clients/llm"
)

// LocalName is the source reported for rule-based replies.
const LocalName = "local"

type rule struct {
	keywords []string
	answer   string
}

// rules are checked in order; the first rule with a keyword contained in the
// lower-cased message answers.
var rules = []rule{
	{
		keywords: []string{"hello", " hi ", " hey", "namaste", "good morning", "good evening"},
		answer: "Namaste! I'm the ShareSathi assistant. Ask me about CAGR, SIPs, P/E ratios, " +
			"the NIFTY and SENSEX, dividends, risk, or how to use your watchlists.",
	},
	{
		keywords: []string{"cagr", "compound annual", "annualized return", "annualised return"},
		answer: "**CAGR** (Compound Annual Growth Rate) is the steady yearly rate that turns your " +
			"starting amount into the ending amount:\n\n`CAGR = (Ending value / Starting value)^(1 / years) - 1`\n\n" +
			"For example ₹10,000 growing to ₹20,000 in 5 years is a CAGR of about 14.87%. " +
			"Try the what-if calculator to see the CAGR of any stock over 1, 3, 5 or 10 years.",
	},
	{
		keywords: []string{" sip", "systematic investment"},
		answer: "A **SIP** (Systematic Investment Plan) invests a fixed amount every month. " +
			"Buying regularly averages your purchase price over time (rupee cost averaging) and " +
			"builds discipline. SIPs suit long horizons; returns are never guaranteed.",
	},
	{
		keywords: []string{"p/e", "pe ratio", "p e ratio", "price to earnings", "price-to-earnings"},
		answer: "The **P/E ratio** is the share price divided by earnings per share. It tells you " +
			"how many rupees investors pay for one rupee of annual profit. Compare it with the " +
			"company's own history and with peers in the same sector rather than in isolation.",
	},
	{
		keywords: []string{"nifty", "sensex", "index"},
		answer: "The **NIFTY 50** tracks 50 large companies on the NSE; the **SENSEX** tracks 30 on the BSE. " +
			"Both are free-float market-cap weighted and are the usual benchmarks for the Indian market. " +
			"The Market page shows their constituents and today's movers.",
	},
	{
		keywords: []string{"dividend", "payout"},
		answer: "A **dividend** is the part of profit a company pays to shareholders. Dividend yield is " +
			"the annual dividend divided by the share price. You must hold the share before the " +
			"ex-dividend date to receive it.",
	},
	{
		keywords: []string{"risk", "volatil", "safe", "lose money", "loss"},
		answer: "All equity investments carry **risk**: prices can fall and stay down for years. " +
			"Diversify across sectors, invest money you won't need soon, and size positions so one " +
			"bad stock can't sink your plan. Volatility on the technicals view shows how much a stock swings.",
	},
	{
		keywords: []string{"watchlist", "watch list"},
		answer: "You can keep up to 10 **watchlists** of up to 50 stocks each. The NIFTY 50 list is " +
			"built in and read-only. Create a list, add symbols from search, and pick which one is " +
			"active; quotes for active lists refresh during market hours.",
	},
}

const defaultAnswer = "I can help with investing basics: CAGR, SIPs, P/E ratios, the NIFTY and SENSEX, " +
	"dividends, risk and watchlists. Could you rephrase your question around one of those? " +
	"This is general information, not investment advice."

// LocalResponder answers from fixed rules. It never fails.
type LocalResponder struct{}

// Name implements llm.Provider
func (LocalResponder) Name() string {
	return LocalName
}

// Complete implements llm.Provider
func (LocalResponder) Complete(_ context.Context, _ string, _ []llm.Message, message string) (string, error) {
	return Answer(message), nil
}

// Answer returns the rule-based reply for message.
func Answer(message string) string {
	text := " " + strings.ToLower(strings.TrimSpace(message)) + " "
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.answer
			}
		}
	}
	return defaultAnswer
}

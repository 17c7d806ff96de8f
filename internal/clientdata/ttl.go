package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLQuote             = 5 * time.Minute
	TTLNews              = 15 * time.Minute
	TTLPriceHistory      = 6 * time.Hour
	TTLQuoteOfTheDay     = 6 * time.Hour
	TTLIndexConstituents = 24 * time.Hour
	TTLBhavcopy          = 7 * 24 * time.Hour // Published once per trading day and never revised
	TTLCompanySummary    = 7 * 24 * time.Hour
)

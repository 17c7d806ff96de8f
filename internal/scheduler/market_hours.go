package scheduler

import "time"

// IST is India Standard Time. A fixed zone avoids depending on tzdata.
var IST = time.FixedZone("IST", 5*3600+1800)

// TradingWindow represents a single trading period within a day
type TradingWindow struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// MarketHours knows the NSE cash session and exchange holidays
type MarketHours struct {
	window   TradingWindow
	holidays map[string]bool
}

// nseHolidays2026 are full trading holidays
var nseHolidays2026 = []string{
	"2026-01-26", // Republic Day
	"2026-03-14", // Holi
	"2026-03-30", // Ram Navami
	"2026-04-02", // Mahavir Jayanti
	"2026-04-10", // Good Friday
	"2026-04-14", // Ambedkar Jayanti
	"2026-05-01", // Maharashtra Day
	"2026-07-07", // Bakri Id
	"2026-08-15", // Independence Day
	"2026-10-02", // Gandhi Jayanti
	"2026-10-23", // Dussehra
	"2026-11-11", // Diwali
	"2026-11-12", // Diwali (Balipratipada)
	"2026-11-25", // Gurunanak Jayanti
	"2026-12-25", // Christmas
}

// NewMarketHours returns the NSE calendar (09:15 to 15:30 IST)
func NewMarketHours() *MarketHours {
	m := &MarketHours{
		window:   TradingWindow{OpenHour: 9, OpenMinute: 15, CloseHour: 15, CloseMinute: 30},
		holidays: make(map[string]bool, len(nseHolidays2026)),
	}
	for _, d := range nseHolidays2026 {
		m.holidays[d] = true
	}
	return m
}

// IsTradingDay reports whether t falls on a weekday that is not a holiday
func (m *MarketHours) IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	if ist.Weekday() == time.Saturday || ist.Weekday() == time.Sunday {
		return false
	}
	return !m.holidays[ist.Format("2006-01-02")]
}

// IsOpen reports whether the cash session is running at t
func (m *MarketHours) IsOpen(t time.Time) bool {
	if !m.IsTradingDay(t) {
		return false
	}
	ist := t.In(IST)
	current := ist.Hour()*60 + ist.Minute()
	open := m.window.OpenHour*60 + m.window.OpenMinute
	closing := m.window.CloseHour*60 + m.window.CloseMinute
	return current >= open && current < closing
}

package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Interval is the bar resolution of a time series.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// IsValid reports whether the interval is supported.
func (i Interval) IsValid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	default:
		return false
	}
}

// NormalizeInterval converts a raw string to an interval, defaulting to daily.
func NormalizeInterval(s string) Interval {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return IntervalDaily
	}
	return Interval(s)
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.^=:-]{0,19}$`)

// Symbol is a normalized (upper-case) ticker.
type Symbol string

// ParseSymbol trims and upper-cases raw and checks it against the ticker grammar.
func ParseSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("symbol %q is malformed", raw)
	}
	return Symbol(s), nil
}

func (s Symbol) String() string { return string(s) }

// DateRange bounds a series request. Zero bounds are open; both bounds are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks start <= end when both are set.
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return fmt.Errorf("range start %s is after end %s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	return nil
}

// IsConcrete reports whether the caller pinned at least one bound.
func (r DateRange) IsConcrete() bool {
	return !r.Start.IsZero() || !r.End.IsZero()
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// PricePoint is one OHLCV bar. Bar timestamps are calendar dates at 00:00 UTC.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate enforces the OHLCV invariants.
func (p PricePoint) Validate() error {
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close, p.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value at %s", p.Timestamp.Format(time.DateOnly))
		}
	}
	if p.Open < 0 || p.Low < 0 || p.Close < 0 {
		return fmt.Errorf("negative price at %s", p.Timestamp.Format(time.DateOnly))
	}
	if p.Volume < 0 {
		return fmt.Errorf("negative volume at %s", p.Timestamp.Format(time.DateOnly))
	}
	if p.High < math.Max(p.Open, math.Max(p.Close, p.Low)) {
		return fmt.Errorf("high %.4f below open/close/low at %s", p.High, p.Timestamp.Format(time.DateOnly))
	}
	if p.Low > math.Min(p.Open, math.Min(p.Close, p.High)) {
		return fmt.Errorf("low %.4f above open/close/high at %s", p.Low, p.Timestamp.Format(time.DateOnly))
	}
	return nil
}

// TimeSeries is an ascending, timestamp-unique price history for one symbol.
type TimeSeries struct {
	Symbol        Symbol       `json:"symbol"`
	Interval      Interval     `json:"interval"`
	LastRefreshed time.Time    `json:"last_refreshed"`
	TimeZone      string       `json:"time_zone,omitempty"`
	Points        []PricePoint `json:"points"`
}

// Len returns the number of points.
func (ts *TimeSeries) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.Points)
}

// IsEmpty reports whether the series holds no points.
func (ts *TimeSeries) IsEmpty() bool { return ts.Len() == 0 }

// Closes extracts close prices in series order.
func (ts *TimeSeries) Closes() []float64 {
	out := make([]float64, ts.Len())
	for i, p := range ts.Points {
		out[i] = p.Close
	}
	return out
}

// Tail returns a copy of the series keeping only the last n points.
func (ts *TimeSeries) Tail(n int) *TimeSeries {
	cp := *ts
	if n >= 0 && len(ts.Points) > n {
		cp.Points = ts.Points[len(ts.Points)-n:]
	}
	return &cp
}

// CompanyOverview is the fundamentals summary shown next to the chart.
type CompanyOverview struct {
	Symbol        Symbol `json:"symbol"`
	Name          string `json:"name"`
	Sector        string `json:"sector"`
	Industry      string `json:"industry"`
	MarketCap     string `json:"market_cap"`
	PERatio       string `json:"pe_ratio"`
	DividendYield string `json:"dividend_yield"`
}

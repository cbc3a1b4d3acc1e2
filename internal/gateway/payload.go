package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StockLens/internal/domain/models"
)

const (
	fnOverview = "OVERVIEW"

	keyMetaData     = "Meta Data"
	keyErrorMessage = "Error Message"
	keyNote         = "Note"
	keyInformation  = "Information"

	notAvailable = "N/A"
)

// seriesFunction maps an interval to the provider function and the payload key holding the bars.
func seriesFunction(iv models.Interval) (function, key string) {
	switch iv {
	case models.IntervalWeekly:
		return "TIME_SERIES_WEEKLY", "Weekly Time Series"
	case models.IntervalMonthly:
		return "TIME_SERIES_MONTHLY", "Monthly Time Series"
	default:
		return "TIME_SERIES_DAILY", "Time Series (Daily)"
	}
}

type envelope map[string]json.RawMessage

func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if env == nil {
		return nil, fmt.Errorf("payload is not a json object")
	}
	return env, nil
}

// notice inspects top-level provider messages. The provider reports symbol and
// quota problems with HTTP 200 and a single message key.
func (env envelope) notice() (Reason, string, bool) {
	if msg, ok := env.stringField(keyErrorMessage); ok {
		return ReasonUnknownSymbol, msg, true
	}
	if msg, ok := env.stringField(keyNote); ok {
		return ReasonRateLimited, msg, true
	}
	if msg, ok := env.stringField(keyInformation); ok {
		// Information also carries premium-endpoint and invalid-key notices.
		if strings.Contains(strings.ToLower(msg), "apikey") && strings.Contains(strings.ToLower(msg), "invalid") {
			return ReasonUnauthorized, msg, true
		}
		return ReasonRateLimited, msg, true
	}
	return ReasonNone, "", false
}

func (env envelope) stringField(key string) (string, bool) {
	raw, ok := env[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), true
	}
	return s, true
}

type seriesMeta struct {
	Symbol        string
	LastRefreshed string
	TimeZone      string
}

// decodeMeta reads "Meta Data". Keys carry a numeric prefix ("2. Symbol") whose
// index differs between functions, so the prefix is stripped before matching.
func (env envelope) decodeMeta() (seriesMeta, error) {
	raw, ok := env[keyMetaData]
	if !ok {
		return seriesMeta{}, fmt.Errorf("missing %q", keyMetaData)
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return seriesMeta{}, fmt.Errorf("decode %q: %w", keyMetaData, err)
	}
	var m seriesMeta
	for k, v := range fields {
		switch stripIndex(k) {
		case "Symbol":
			m.Symbol = v
		case "Last Refreshed":
			m.LastRefreshed = v
		case "Time Zone":
			m.TimeZone = v
		}
	}
	return m, nil
}

type rawBar map[string]string

// decodeBars parses the bar object under key. Bars come back in provider order
// (map iteration), sorting is the caller's job.
func (env envelope) decodeBars(key string, loc *time.Location) ([]models.PricePoint, error) {
	raw, ok := env[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	var bars map[string]rawBar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	points := make([]models.PricePoint, 0, len(bars))
	for stamp, bar := range bars {
		ts, err := parseBarTime(stamp, loc)
		if err != nil {
			return nil, err
		}
		p := models.PricePoint{Timestamp: ts}
		for k, v := range bar {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("bar %s field %q: %w", stamp, k, err)
			}
			switch stripIndex(k) {
			case "open":
				p.Open = f
			case "high":
				p.High = f
			case "low":
				p.Low = f
			case "close":
				p.Close = f
			case "volume":
				p.Volume = f
			}
		}
		if err := requireFields(stamp, bar); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func requireFields(stamp string, bar rawBar) error {
	seen := make(map[string]bool, len(bar))
	for k := range bar {
		seen[stripIndex(k)] = true
	}
	for _, f := range []string{"open", "high", "low", "close", "volume"} {
		if !seen[f] {
			return fmt.Errorf("bar %s missing %q", stamp, f)
		}
	}
	return nil
}

func decodeOverview(env envelope, symbol models.Symbol) *models.CompanyOverview {
	if _, ok := env["Symbol"]; !ok {
		return nil
	}
	get := func(k string) string {
		if v, ok := env.stringField(k); ok && v != "" {
			return v
		}
		return notAvailable
	}
	return &models.CompanyOverview{
		Symbol:        symbol,
		Name:          get("Name"),
		Sector:        get("Sector"),
		Industry:      get("Industry"),
		MarketCap:     get("MarketCapitalization"),
		PERatio:       get("PERatio"),
		DividendYield: get("DividendYield"),
	}
}

// parseBarTime reads a bar key. Plain dates map to 00:00 UTC of that calendar
// date; datetimes are read in the payload time zone and converted to UTC.
func parseBarTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateTime, s, loc); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func stripIndex(k string) string {
	if i := strings.Index(k, ". "); i >= 0 {
		if _, err := strconv.Atoi(k[:i]); err == nil {
			return k[i+2:]
		}
	}
	return k
}

package models

import "time"

// Indicators holds indicator lines aligned with the displayed points. Nil entries
// mark positions without enough history.
type Indicators struct {
	SMA20           []*float64 `json:"sma_20"`
	SMA50           []*float64 `json:"sma_50"`
	EMA12           []*float64 `json:"ema_12"`
	EMA26           []*float64 `json:"ema_26"`
	RSI14           []*float64 `json:"rsi"`
	BollingerUpper  []*float64 `json:"bollinger_upper"`
	BollingerMiddle []*float64 `json:"bollinger_middle"`
	BollingerLower  []*float64 `json:"bollinger_lower"`
	MACDLine        []*float64 `json:"macd_line"`
	MACDSignal      []*float64 `json:"macd_signal"`
	MACDHistogram   []*float64 `json:"macd_histogram"`
}

// StockData is the chart payload for one symbol.
type StockData struct {
	Symbol        Symbol      `json:"symbol"`
	Interval      Interval    `json:"interval"`
	LastRefreshed time.Time   `json:"last_refreshed"`
	Empty         bool        `json:"empty"`
	Dates         []string    `json:"dates"`
	Opens         []float64   `json:"opens"`
	Highs         []float64   `json:"highs"`
	Lows          []float64   `json:"lows"`
	Prices        []float64   `json:"prices"`
	Volumes       []float64   `json:"volumes"`
	Indicators    *Indicators `json:"indicators,omitempty"`
}

// StockView is the full response of the stock endpoint.
type StockView struct {
	StockData   *StockData       `json:"stock_data"`
	CompanyInfo *CompanyOverview `json:"company_info"`
}

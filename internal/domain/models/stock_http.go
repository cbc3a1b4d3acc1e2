package models

// Requests for stock HTTP endpoints. Defined in domain for consistency and reuse.

type StockRequest struct {
	Symbol   string `param:"symbol" json:"symbol" validate:"required,max=20"`
	Interval string `query:"interval" json:"interval" default:"daily" validate:"oneof=daily weekly monthly"`
	From     string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	// SkipOverview omits the company overview lookup (one provider call fewer).
	SkipOverview bool `query:"skip_overview" json:"skip_overview"`
}

type SeriesRequest struct {
	Symbol   string `param:"symbol" json:"symbol" validate:"required,max=20"`
	Interval string `query:"interval" json:"interval" default:"daily" validate:"oneof=daily weekly monthly"`
	From     string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type OverviewRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=20"`
}

package models

// Quote is a point-in-time market snapshot for one symbol.
// Optional fields are nil when the provider does not report them.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"changePercent"`
	Volume        *float64 `json:"volume,omitempty"`
	MarketCap     *float64 `json:"marketCap,omitempty"`
	High          *float64 `json:"high,omitempty"`
	Low           *float64 `json:"low,omitempty"`
	Open          *float64 `json:"open,omitempty"`
	PreviousClose *float64 `json:"previousClose,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

// Bar is one OHLCV point of a historical series. Date is YYYY-MM-DD (UTC).
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exchange string `json:"exchange,omitempty"`
}

// Float returns a pointer to v, for filling optional quote fields.
func Float(v float64) *float64 {
	return &v
}

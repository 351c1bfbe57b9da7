package models

// MTradeEvent is one ticker entry. Immutable once created.
type MTradeEvent struct {
	Timestamp Timestamp `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
	TradeID   string    `json:"trade_id"`
}

// MPricePoint is one plotted point of a symbol's price history.
type MPricePoint struct {
	SequenceIndex   int64     `json:"sequence_index"`
	Price           float64   `json:"price"`
	SourceTimestamp Timestamp `json:"source_timestamp"`
}

// MSeriesSummary describes the price history window of a symbol.
type MSeriesSummary struct {
	Symbol        string  `json:"symbol"`
	Points        int     `json:"points"`
	First         float64 `json:"first"`
	Last          float64 `json:"last"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	ChangePercent float64 `json:"change_percent"`
	LastZScore    float64 `json:"last_z_score"`
}

// MMarketView is the latest top-of-book and depth of a symbol.
type MMarketView struct {
	Symbol string         `json:"symbol"`
	BBO    *MBBOUpdate    `json:"bbo,omitempty"`
	Book   *MBookSnapshot `json:"book,omitempty"`
	Mid    float64        `json:"mid,omitempty"`
	Spread float64        `json:"spread,omitempty"`
}

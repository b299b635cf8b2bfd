package models

import "time"

// MarketData is a quote for a single symbol. The store keeps exactly one
// entry per symbol; push updates replace the previous quote wholesale.
type MarketData struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        float64   `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Timestamp     time.Time `json:"timestamp"`
}

// Candle is a single OHLCV bar from the historical market data endpoint.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

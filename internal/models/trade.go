package models

import "time"

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
	// SideAll is not a wire value; it is the catch-all used by filters.
	SideAll TradeSide = "ALL"
)

// TradeStatus is the lifecycle state of a trade. Transitions only move
// forward: OPEN may become PENDING or CLOSED, PENDING may return to OPEN
// or become CLOSED. A CLOSED trade never reopens.
type TradeStatus string

const (
	StatusOpen    TradeStatus = "OPEN"
	StatusClosed  TradeStatus = "CLOSED"
	StatusPending TradeStatus = "PENDING"
)

// Trade represents a single executed or pending trade.
type Trade struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Type       TradeSide   `json:"type"`
	Quantity   float64     `json:"quantity"`
	Price      float64     `json:"price"`
	ExecutedAt time.Time   `json:"executedAt"`
	Status     TradeStatus `json:"status"`
	PnL        *float64    `json:"pnl,omitempty"`
	StopLoss   *float64    `json:"stopLoss,omitempty"`
	TakeProfit *float64    `json:"takeProfit,omitempty"`
	Strategy   string      `json:"strategy,omitempty"`
}

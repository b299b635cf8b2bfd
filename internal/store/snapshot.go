package store

import "trading-dashboard-go/internal/models"

// Snapshot is the complete dashboard state at a point in time. Snapshots
// are never mutated after publication; the reducer copies any slice it
// touches, so a reader holding an old snapshot always sees a consistent
// view.
type Snapshot struct {
	User          *models.User
	Authenticated bool
	Trades        []models.Trade
	Strategies    []models.Strategy
	MarketData    []models.MarketData
	Notifications []models.Notification
	IsLoading     bool
}

// Quote returns the quote for a symbol, if present.
func (s Snapshot) Quote(symbol string) (models.MarketData, bool) {
	for _, q := range s.MarketData {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return models.MarketData{}, false
}

// Trade returns the trade with the given id, if present.
func (s Snapshot) Trade(id string) (models.Trade, bool) {
	for _, t := range s.Trades {
		if t.ID == id {
			return t, true
		}
	}
	return models.Trade{}, false
}

// Strategy returns the strategy with the given id, if present.
func (s Snapshot) Strategy(id string) (models.Strategy, bool) {
	for _, st := range s.Strategies {
		if st.ID == id {
			return st, true
		}
	}
	return models.Strategy{}, false
}

// UnreadCount returns the number of unread notifications.
func (s Snapshot) UnreadCount() int {
	count := 0
	for _, n := range s.Notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// prependTrade returns Trades with t at the front, leaving the original
// slice untouched.
func prependTrade(trades []models.Trade, t models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades)+1)
	out = append(out, t)
	return append(out, trades...)
}

func prependStrategy(strategies []models.Strategy, st models.Strategy) []models.Strategy {
	out := make([]models.Strategy, 0, len(strategies)+1)
	out = append(out, st)
	return append(out, strategies...)
}

func prependNotification(notifications []models.Notification, n models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(notifications)+1)
	out = append(out, n)
	return append(out, notifications...)
}

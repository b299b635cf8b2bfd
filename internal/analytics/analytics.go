// Package analytics computes derived views over state snapshots. All
// functions are pure; the package holds no state of its own.
package analytics

import (
	"time"

	"trading-dashboard-go/internal/models"
	"trading-dashboard-go/internal/store"
)

// RangeKey selects how far back a trade filter reaches.
type RangeKey string

const (
	Range1D  RangeKey = "1d"
	Range7D  RangeKey = "7d"
	Range30D RangeKey = "30d"
	RangeAll RangeKey = "all"
)

// TotalPnL sums trade P&L across all trades. Trades without a recorded
// P&L count as zero.
func TotalPnL(trades []models.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		if t.PnL != nil {
			total += *t.PnL
		}
	}
	return total
}

// TodayPnL sums P&L over trades executed on the same calendar date as
// now, in now's location.
func TodayPnL(trades []models.Trade, now time.Time) float64 {
	total := 0.0
	y, m, d := now.Date()
	for _, t := range trades {
		ty, tm, td := t.ExecutedAt.In(now.Location()).Date()
		if ty == y && tm == m && td == d && t.PnL != nil {
			total += *t.PnL
		}
	}
	return total
}

// WinRate is the percentage of trades with positive P&L. An empty set
// has a win rate of exactly 0.
func WinRate(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL != nil && *t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// FilterByRange retains trades executed within the range ending at now.
// The boundary is inclusive: a trade exactly at the range edge is kept.
// Unknown keys behave like RangeAll.
func FilterByRange(trades []models.Trade, key RangeKey, now time.Time) []models.Trade {
	var window time.Duration
	switch key {
	case Range1D:
		window = 24 * time.Hour
	case Range7D:
		window = 7 * 24 * time.Hour
	case Range30D:
		window = 30 * 24 * time.Hour
	default:
		return trades
	}

	cutoff := now.Add(-window)
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.ExecutedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// FilterBySide retains trades matching the given side. SideAll keeps
// everything.
func FilterBySide(trades []models.Trade, side models.TradeSide) []models.Trade {
	if side == models.SideAll {
		return trades
	}
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Type == side {
			out = append(out, t)
		}
	}
	return out
}

// Summary aggregates the dashboard header numbers from a snapshot.
type Summary struct {
	TotalPnL            float64 `json:"totalPnL"`
	TodayPnL            float64 `json:"todayPnL"`
	WinRate             float64 `json:"winRate"`
	OpenTrades          int     `json:"openTrades"`
	ActiveStrategies    int     `json:"activeStrategies"`
	UnreadNotifications int     `json:"unreadNotifications"`
}

// Summarize computes the Summary for a snapshot at the given time.
func Summarize(s store.Snapshot, now time.Time) Summary {
	open := 0
	for _, t := range s.Trades {
		if t.Status == models.StatusOpen {
			open++
		}
	}
	active := 0
	for _, st := range s.Strategies {
		if st.IsActive {
			active++
		}
	}

	return Summary{
		TotalPnL:            TotalPnL(s.Trades),
		TodayPnL:            TodayPnL(s.Trades, now),
		WinRate:             WinRate(s.Trades),
		OpenTrades:          open,
		ActiveStrategies:    active,
		UnreadNotifications: s.UnreadCount(),
	}
}

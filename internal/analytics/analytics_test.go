package analytics

import (
	"testing"
	"time"

	"trading-dashboard-go/internal/models"
	"trading-dashboard-go/internal/store"

	"github.com/stretchr/testify/assert"
)

func pnl(v float64) *float64 { return &v }

func trade(id string, side models.TradeSide, p *float64, executedAt time.Time) models.Trade {
	return models.Trade{
		ID:         id,
		Symbol:     "NIFTY",
		Type:       side,
		Quantity:   1,
		Price:      100,
		ExecutedAt: executedAt,
		Status:     models.StatusClosed,
		PnL:        p,
	}
}

func TestTotalPnL(t *testing.T) {
	now := time.Now()
	trades := []models.Trade{
		trade("1", models.SideBuy, pnl(2250), now),
		trade("2", models.SideSell, pnl(-875), now),
		trade("3", models.SideBuy, pnl(1250), now),
	}

	assert.Equal(t, 2625.0, TotalPnL(trades))
}

func TestTotalPnL_MissingPnLCountsAsZero(t *testing.T) {
	now := time.Now()
	trades := []models.Trade{
		trade("1", models.SideBuy, pnl(100), now),
		trade("2", models.SideBuy, nil, now),
	}

	assert.Equal(t, 100.0, TotalPnL(trades))
}

func TestTodayPnL(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-25 * time.Hour)
	trades := []models.Trade{
		trade("1", models.SideBuy, pnl(50), now),
		trade("2", models.SideBuy, pnl(30), now.Add(-time.Minute)),
		trade("3", models.SideBuy, pnl(999), yesterday),
	}

	assert.Equal(t, 80.0, TodayPnL(trades, now))
}

func TestWinRate(t *testing.T) {
	t.Run("EmptySetIsZero", func(t *testing.T) {
		assert.Equal(t, 0.0, WinRate(nil))
		assert.Equal(t, 0.0, WinRate([]models.Trade{}))
	})

	t.Run("CountsOnlyPositivePnL", func(t *testing.T) {
		now := time.Now()
		trades := []models.Trade{
			trade("1", models.SideBuy, pnl(10), now),
			trade("2", models.SideBuy, pnl(-5), now),
			trade("3", models.SideBuy, nil, now),
			trade("4", models.SideBuy, pnl(1), now),
		}

		assert.InDelta(t, 50.0, WinRate(trades), 1e-9)
	})
}

func TestFilterByRange(t *testing.T) {
	now := time.Now()

	t.Run("BoundaryIsInclusive", func(t *testing.T) {
		// A trade executed exactly 24h ago sits on the 1d edge and is kept.
		trades := []models.Trade{trade("edge", models.SideBuy, pnl(1), now.Add(-24*time.Hour))}

		got := FilterByRange(trades, Range1D, now)

		assert.Len(t, got, 1)
	})

	t.Run("OutsideRangeIsDropped", func(t *testing.T) {
		trades := []models.Trade{trade("old", models.SideBuy, pnl(1), now.Add(-24*time.Hour-time.Second))}

		got := FilterByRange(trades, Range1D, now)

		assert.Empty(t, got)
	})

	t.Run("AllKeepsEverything", func(t *testing.T) {
		trades := []models.Trade{
			trade("1", models.SideBuy, pnl(1), now.AddDate(-1, 0, 0)),
			trade("2", models.SideBuy, pnl(1), now),
		}

		assert.Len(t, FilterByRange(trades, RangeAll, now), 2)
	})

	t.Run("SevenAndThirtyDays", func(t *testing.T) {
		trades := []models.Trade{
			trade("2d", models.SideBuy, pnl(1), now.Add(-48*time.Hour)),
			trade("20d", models.SideBuy, pnl(1), now.Add(-20*24*time.Hour)),
		}

		assert.Len(t, FilterByRange(trades, Range7D, now), 1)
		assert.Len(t, FilterByRange(trades, Range30D, now), 2)
	})
}

func TestFilterBySide(t *testing.T) {
	now := time.Now()
	trades := []models.Trade{
		trade("1", models.SideBuy, pnl(1), now),
		trade("2", models.SideSell, pnl(1), now),
		trade("3", models.SideBuy, pnl(1), now),
	}

	assert.Len(t, FilterBySide(trades, models.SideBuy), 2)
	assert.Len(t, FilterBySide(trades, models.SideSell), 1)
	assert.Len(t, FilterBySide(trades, models.SideAll), 3)
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	open := trade("1", models.SideBuy, pnl(100), now)
	open.Status = models.StatusOpen

	snapshot := store.Snapshot{
		Trades: []models.Trade{open, trade("2", models.SideSell, pnl(-40), now)},
		Strategies: []models.Strategy{
			{ID: "s1", IsActive: true},
			{ID: "s2", IsActive: false},
		},
		Notifications: []models.Notification{
			{ID: "n1", Read: false},
			{ID: "n2", Read: true},
		},
	}

	summary := Summarize(snapshot, now)

	assert.Equal(t, 60.0, summary.TotalPnL)
	assert.Equal(t, 60.0, summary.TodayPnL)
	assert.InDelta(t, 50.0, summary.WinRate, 1e-9)
	assert.Equal(t, 1, summary.OpenTrades)
	assert.Equal(t, 1, summary.ActiveStrategies)
	assert.Equal(t, 1, summary.UnreadNotifications)
}

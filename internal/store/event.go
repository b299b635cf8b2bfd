package store

import "trading-dashboard-go/internal/models"

// Event is the closed set of state transitions the store accepts. The
// unexported marker keeps the set sealed to this package's variants so
// the reducer's type switch stays exhaustive.
type Event interface {
	isEvent()
}

// SetUser installs the authenticated user.
type SetUser struct {
	User models.User
}

// Logout clears the session. Domain collections are intentionally left
// untouched; callers discard or reload them explicitly.
type Logout struct{}

// AddTrade prepends a trade. Inserting an id already present is a no-op.
type AddTrade struct {
	Trade models.Trade
}

// UpdateTrade merges the set fields of Updates into the trade with the
// given id. Unknown ids are a no-op.
type UpdateTrade struct {
	ID      string
	Updates TradePatch
}

// AddStrategy prepends a strategy. Inserting an id already present is a
// no-op.
type AddStrategy struct {
	Strategy models.Strategy
}

// UpdateStrategy merges the set fields of Updates into the strategy with
// the given id. Unknown ids are a no-op.
type UpdateStrategy struct {
	ID      string
	Updates StrategyPatch
}

// SetMarketData replaces the quote collection wholesale.
type SetMarketData struct {
	Quotes []models.MarketData
}

// UpdateMarketData upserts a single quote keyed by symbol.
type UpdateMarketData struct {
	Quote models.MarketData
}

// AddNotification prepends a notification. Inserting an id already
// present is a no-op.
type AddNotification struct {
	Notification models.Notification
}

// MarkNotificationRead flips the read flag of the notification with the
// given id. Unknown or already-read ids are a no-op.
type MarkNotificationRead struct {
	ID string
}

// SetLoading toggles the UI loading flag. Orthogonal to all other state.
type SetLoading struct {
	Loading bool
}

func (SetUser) isEvent()              {}
func (Logout) isEvent()               {}
func (AddTrade) isEvent()             {}
func (UpdateTrade) isEvent()          {}
func (AddStrategy) isEvent()          {}
func (UpdateStrategy) isEvent()       {}
func (SetMarketData) isEvent()        {}
func (UpdateMarketData) isEvent()     {}
func (AddNotification) isEvent()      {}
func (MarkNotificationRead) isEvent() {}
func (SetLoading) isEvent()           {}

// TradePatch carries the fields an UpdateTrade may change. Nil fields
// are left alone.
type TradePatch struct {
	Status     *models.TradeStatus
	Price      *float64
	Quantity   *float64
	PnL        *float64
	StopLoss   *float64
	TakeProfit *float64
	Strategy   *string
}

func (p TradePatch) apply(t models.Trade) models.Trade {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Quantity != nil {
		t.Quantity = *p.Quantity
	}
	if p.PnL != nil {
		pnl := *p.PnL
		t.PnL = &pnl
	}
	if p.StopLoss != nil {
		sl := *p.StopLoss
		t.StopLoss = &sl
	}
	if p.TakeProfit != nil {
		tp := *p.TakeProfit
		t.TakeProfit = &tp
	}
	if p.Strategy != nil {
		t.Strategy = *p.Strategy
	}
	return t
}

// StrategyPatch carries the fields an UpdateStrategy may change. Nil
// fields are left alone.
type StrategyPatch struct {
	Name        *string
	IsActive    *bool
	Parameters  *models.StrategyParameters
	Performance *models.StrategyPerformance
}

func (p StrategyPatch) apply(s models.Strategy) models.Strategy {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.Parameters != nil {
		s.Parameters = *p.Parameters
	}
	if p.Performance != nil {
		s.Performance = *p.Performance
	}
	return s
}

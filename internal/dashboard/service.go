package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trading-dashboard-go/internal/api"
	"trading-dashboard-go/internal/feed"
	"trading-dashboard-go/internal/models"
	"trading-dashboard-go/internal/session"
	"trading-dashboard-go/internal/store"

	"go.uber.org/zap"
)

// FeedClient is the realtime feed surface the service depends on.
type FeedClient interface {
	Connect(ctx context.Context, token string) error
	Subscribe(topic string, handler feed.Handler) (*feed.Subscription, error)
	Unsubscribe(sub *feed.Subscription)
	Disconnect()
	IsConnected() bool
}

// Service drives the sync cycle: intents go out through the gateway,
// acks and push events come back in as store events. It owns the feed
// lifecycle at the session boundary; the UI layer only reads snapshots
// and calls these methods.
type Service struct {
	logger  *zap.Logger
	gateway api.GatewayInterface
	feed    FeedClient
	store   *store.Store
	holder  *session.Holder
}

// NewService creates the sync service.
func NewService(logger *zap.Logger, gateway api.GatewayInterface, feedClient FeedClient, st *store.Store, holder *session.Holder) *Service {
	return &Service{
		logger:  logger,
		gateway: gateway,
		feed:    feedClient,
		store:   st,
		holder:  holder,
	}
}

// Store exposes the state store for snapshot reads and subscriptions.
func (s *Service) Store() *store.Store { return s.store }

// Login authenticates, loads the domain snapshot and brings up the feed.
func (s *Service) Login(ctx context.Context, email, password string) error {
	_ = s.store.Dispatch(store.SetLoading{Loading: true})
	defer func() { _ = s.store.Dispatch(store.SetLoading{Loading: false}) }()

	auth, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return err
	}
	// The user lands in the store only once the snapshot is in; a failed
	// load must not leave an authenticated store with empty collections.
	if err := s.startSession(ctx, auth.Token); err != nil {
		return err
	}
	return s.store.Dispatch(store.SetUser{User: auth.User})
}

// Register creates an account, then proceeds exactly like Login.
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	_ = s.store.Dispatch(store.SetLoading{Loading: true})
	defer func() { _ = s.store.Dispatch(store.SetLoading{Loading: false}) }()

	auth, err := s.gateway.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	if err := s.startSession(ctx, auth.Token); err != nil {
		return err
	}
	return s.store.Dispatch(store.SetUser{User: auth.User})
}

// Resume rebuilds the session from a token restored at startup. The
// domain snapshot is re-fetched in full; only the token itself survived
// the restart.
func (s *Service) Resume(ctx context.Context) error {
	token, ok := s.holder.Token()
	if !ok {
		return api.ErrUnauthorized
	}
	return s.startSession(ctx, token)
}

func (s *Service) startSession(ctx context.Context, token string) error {
	if err := s.loadSnapshot(ctx); err != nil {
		return err
	}

	if err := s.feed.Connect(ctx, token); err != nil {
		// The dashboard still works from the REST snapshot; push updates
		// resume when the next connect succeeds.
		s.logger.Warn("Feed connect failed, continuing without push updates", zap.Error(err))
	}
	s.subscribeTopics()
	return nil
}

// Logout tears down the feed and clears the session. The Logout event
// clears the session only; discarding the domain collections is the
// session boundary's job, done here via Reset.
func (s *Service) Logout() error {
	s.feed.Disconnect()
	if err := s.gateway.Logout(); err != nil {
		return err
	}
	if err := s.store.Dispatch(store.Logout{}); err != nil {
		return err
	}
	s.store.Reset()
	return nil
}

// loadSnapshot fetches trades, strategies and notifications and replays
// them into the store. Lists arrive most-recent-first and the store
// prepends, so each list is replayed in reverse to preserve order.
func (s *Service) loadSnapshot(ctx context.Context) error {
	trades, err := s.gateway.ListTrades(ctx)
	if err != nil {
		return s.authGuard(fmt.Errorf("snapshot load: %w", err))
	}
	for i := len(trades) - 1; i >= 0; i-- {
		_ = s.store.Dispatch(store.AddTrade{Trade: trades[i]})
	}

	strategies, err := s.gateway.ListStrategies(ctx)
	if err != nil {
		return s.authGuard(fmt.Errorf("snapshot load: %w", err))
	}
	for i := len(strategies) - 1; i >= 0; i-- {
		_ = s.store.Dispatch(store.AddStrategy{Strategy: strategies[i]})
	}

	notifications, err := s.gateway.ListNotifications(ctx)
	if err != nil {
		return s.authGuard(fmt.Errorf("snapshot load: %w", err))
	}
	for i := len(notifications) - 1; i >= 0; i-- {
		_ = s.store.Dispatch(store.AddNotification{Notification: notifications[i]})
	}

	return nil
}

// subscribeTopics registers the push handlers. The feed retains the
// registrations across transport drops, so this runs once per session.
func (s *Service) subscribeTopics() {
	subscribe := func(topic string, handler feed.Handler) {
		if _, err := s.feed.Subscribe(topic, handler); err != nil {
			s.logger.Warn("Failed to subscribe topic", zap.String("topic", topic), zap.Error(err))
		}
	}

	subscribe(feed.TopicAllMarketData, s.onMarketData)
	subscribe(feed.TopicTrades, s.onTrade)
	subscribe(feed.TopicNotifications, s.onNotification)
}

func (s *Service) onMarketData(data json.RawMessage) {
	var quote models.MarketData
	if err := json.Unmarshal(data, &quote); err != nil {
		s.logger.Warn("Dropping malformed market data event", zap.Error(err))
		return
	}
	_ = s.store.Dispatch(store.UpdateMarketData{Quote: quote})
}

func (s *Service) onTrade(data json.RawMessage) {
	var trade models.Trade
	if err := json.Unmarshal(data, &trade); err != nil {
		s.logger.Warn("Dropping malformed trade event", zap.Error(err))
		return
	}

	if _, ok := s.store.Snapshot().Trade(trade.ID); ok {
		_ = s.store.Dispatch(store.UpdateTrade{ID: trade.ID, Updates: tradePatch(trade)})
		return
	}
	_ = s.store.Dispatch(store.AddTrade{Trade: trade})
}

func (s *Service) onNotification(data json.RawMessage) {
	var notification models.Notification
	if err := json.Unmarshal(data, &notification); err != nil {
		s.logger.Warn("Dropping malformed notification event", zap.Error(err))
		return
	}
	_ = s.store.Dispatch(store.AddNotification{Notification: notification})
}

// tradePatch turns a full pushed trade into a merge patch for an
// existing entry.
func tradePatch(t models.Trade) store.TradePatch {
	status := t.Status
	price := t.Price
	quantity := t.Quantity
	strategy := t.Strategy
	return store.TradePatch{
		Status:     &status,
		Price:      &price,
		Quantity:   &quantity,
		PnL:        t.PnL,
		StopLoss:   t.StopLoss,
		TakeProfit: t.TakeProfit,
		Strategy:   &strategy,
	}
}

// SubmitTrade sends the intent and applies the ack to the store.
func (s *Service) SubmitTrade(ctx context.Context, req api.TradeRequest) (*models.Trade, error) {
	created, err := s.gateway.SubmitTrade(ctx, req)
	if err != nil {
		return nil, s.authGuard(err)
	}
	_ = s.store.Dispatch(store.AddTrade{Trade: *created})
	return created, nil
}

// CloseTrade sends the intent and merges the returned trade state.
func (s *Service) CloseTrade(ctx context.Context, id string) error {
	closed, err := s.gateway.CloseTrade(ctx, id)
	if err != nil {
		return s.authGuard(err)
	}
	return s.store.Dispatch(store.UpdateTrade{ID: closed.ID, Updates: tradePatch(*closed)})
}

// CreateStrategy sends the intent and applies the ack to the store.
func (s *Service) CreateStrategy(ctx context.Context, req api.StrategyRequest) (*models.Strategy, error) {
	created, err := s.gateway.CreateStrategy(ctx, req)
	if err != nil {
		return nil, s.authGuard(err)
	}
	_ = s.store.Dispatch(store.AddStrategy{Strategy: *created})
	return created, nil
}

// ToggleStrategy flips a strategy and applies the resulting active flag.
func (s *Service) ToggleStrategy(ctx context.Context, id string) error {
	toggled, err := s.gateway.ToggleStrategy(ctx, id)
	if err != nil {
		return s.authGuard(err)
	}
	active := toggled.IsActive
	return s.store.Dispatch(store.UpdateStrategy{
		ID:      toggled.ID,
		Updates: store.StrategyPatch{IsActive: &active},
	})
}

// MarkNotificationRead acknowledges one notification.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	if err := s.gateway.MarkNotificationRead(ctx, id); err != nil {
		return s.authGuard(err)
	}
	return s.store.Dispatch(store.MarkNotificationRead{ID: id})
}

// MarkAllNotificationsRead acknowledges every unread notification.
func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	if err := s.gateway.MarkAllNotificationsRead(ctx); err != nil {
		return s.authGuard(err)
	}
	for _, n := range s.store.Snapshot().Notifications {
		if !n.Read {
			_ = s.store.Dispatch(store.MarkNotificationRead{ID: n.ID})
		}
	}
	return nil
}

// HistoricalMarketData proxies the charting fetch; candles are not part
// of the store.
func (s *Service) HistoricalMarketData(ctx context.Context, symbol, timeFrame string, limit int) ([]models.Candle, error) {
	candles, err := s.gateway.HistoricalMarketData(ctx, symbol, timeFrame, limit)
	if err != nil {
		return nil, s.authGuard(err)
	}
	return candles, nil
}

// authGuard forces a logout when the backend rejects the session.
func (s *Service) authGuard(err error) error {
	if err != nil && errors.Is(err, api.ErrUnauthorized) {
		s.logger.Warn("Session rejected by backend, logging out", zap.Error(err))
		if lerr := s.Logout(); lerr != nil {
			s.logger.Error("Forced logout failed", zap.Error(lerr))
		}
	}
	return err
}

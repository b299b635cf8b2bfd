package store

import (
	"errors"
	"fmt"
	"sync"

	"trading-dashboard-go/internal/models"

	"go.uber.org/zap"
)

// ErrUnknownEvent is returned when Apply sees an event kind outside the
// closed set. Unknown kinds are integration bugs and fail fast; they are
// never silently ignored.
var ErrUnknownEvent = errors.New("store: unknown event kind")

// Apply is the reducer: given a snapshot and an event it produces the
// next snapshot without mutating the input. The enumerated id-miss cases
// (updating or marking an absent id, re-adding a present id) are valid
// no-ops and return the snapshot unchanged.
func Apply(s Snapshot, e Event) (Snapshot, error) {
	switch ev := e.(type) {
	case SetUser:
		user := ev.User
		s.User = &user
		s.Authenticated = true

	case Logout:
		// Session only. Trades, strategies, quotes and notifications
		// stay; the caller discards or reloads them.
		s.User = nil
		s.Authenticated = false

	case AddTrade:
		if _, ok := s.Trade(ev.Trade.ID); ok {
			return s, nil
		}
		s.Trades = prependTrade(s.Trades, ev.Trade)

	case UpdateTrade:
		idx := -1
		for i, t := range s.Trades {
			if t.ID == ev.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s, nil
		}
		trades := make([]models.Trade, len(s.Trades))
		copy(trades, s.Trades)
		trades[idx] = ev.Updates.apply(trades[idx])
		s.Trades = trades

	case AddStrategy:
		if _, ok := s.Strategy(ev.Strategy.ID); ok {
			return s, nil
		}
		s.Strategies = prependStrategy(s.Strategies, ev.Strategy)

	case UpdateStrategy:
		idx := -1
		for i, st := range s.Strategies {
			if st.ID == ev.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s, nil
		}
		strategies := make([]models.Strategy, len(s.Strategies))
		copy(strategies, s.Strategies)
		strategies[idx] = ev.Updates.apply(strategies[idx])
		s.Strategies = strategies

	case SetMarketData:
		quotes := make([]models.MarketData, len(ev.Quotes))
		copy(quotes, ev.Quotes)
		s.MarketData = quotes

	case UpdateMarketData:
		// True upsert: replace the entry with the matching symbol or
		// append when absent, never both.
		quotes := make([]models.MarketData, len(s.MarketData))
		copy(quotes, s.MarketData)
		replaced := false
		for i, q := range quotes {
			if q.Symbol == ev.Quote.Symbol {
				quotes[i] = ev.Quote
				replaced = true
				break
			}
		}
		if !replaced {
			quotes = append(quotes, ev.Quote)
		}
		s.MarketData = quotes

	case AddNotification:
		for _, n := range s.Notifications {
			if n.ID == ev.Notification.ID {
				return s, nil
			}
		}
		s.Notifications = prependNotification(s.Notifications, ev.Notification)

	case MarkNotificationRead:
		idx := -1
		for i, n := range s.Notifications {
			if n.ID == ev.ID && !n.Read {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s, nil
		}
		notifications := make([]models.Notification, len(s.Notifications))
		copy(notifications, s.Notifications)
		notifications[idx].Read = true
		s.Notifications = notifications

	case SetLoading:
		s.IsLoading = ev.Loading

	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}

	return s, nil
}

// Store is the single source of truth for dashboard state. Events are
// applied one at a time in dispatch order; subscribers observe every
// resulting snapshot in that same order.
type Store struct {
	logger *zap.Logger

	mu          sync.Mutex
	snapshot    Snapshot
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New creates a store holding the empty initial snapshot.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger:      logger,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Dispatch applies an event and notifies subscribers of the new snapshot.
func (s *Store) Dispatch(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Apply(s.snapshot, e)
	if err != nil {
		s.logger.Error("Rejected event", zap.String("event", fmt.Sprintf("%T", e)), zap.Error(err))
		return err
	}
	s.snapshot = next

	for _, notify := range s.subscribers {
		notify(next)
	}
	return nil
}

// Reset discards the current snapshot for the empty one and notifies
// subscribers. The Logout event deliberately leaves domain collections
// in place; the session boundary calls Reset when it wants them gone.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = Snapshot{}
	for _, notify := range s.subscribers {
		notify(s.snapshot)
	}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// SubscribeFunc registers a change listener and returns its unsubscribe
// function. Listeners run on the dispatching goroutine and must not
// dispatch re-entrantly.
func (s *Store) SubscribeFunc(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

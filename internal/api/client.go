package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"trading-dashboard-go/internal/config"
	"trading-dashboard-go/internal/models"
	"trading-dashboard-go/internal/session"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenStore persists the session token across restarts. It is optional;
// a nil store means the token lives only in memory.
type TokenStore interface {
	Save(token string) error
	Delete() error
}

// GatewayInterface defines the request gateway exposed to the UI layer.
type GatewayInterface interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*AuthResponse, error)
	Logout() error
	ListTrades(ctx context.Context) ([]models.Trade, error)
	SubmitTrade(ctx context.Context, req TradeRequest) (*models.Trade, error)
	CloseTrade(ctx context.Context, id string) (*models.Trade, error)
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
	CreateStrategy(ctx context.Context, req StrategyRequest) (*models.Strategy, error)
	ToggleStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	HistoricalMarketData(ctx context.Context, symbol, timeFrame string, limit int) ([]models.Candle, error)
}

// Client is the authenticated request/response gateway to the trading
// backend. It holds no entity state; it only translates intents into
// REST calls and failures into typed errors.
type Client struct {
	client  *resty.Client
	holder  *session.Holder
	tokens  TokenStore
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ GatewayInterface = (*Client)(nil)

// NewClient creates a gateway client for the configured backend.
func NewClient(cfg *config.API, holder *session.Holder, tokens TokenStore, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		holder:  holder,
		tokens:  tokens,
		logger:  logger,
		limiter: limiter,
	}
}

// AuthResponse is the payload of a successful login or register call.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// TradeRequest is the body for submitting a new trade.
type TradeRequest struct {
	Symbol     string           `json:"symbol"`
	Type       models.TradeSide `json:"type"`
	Quantity   float64          `json:"quantity"`
	Price      float64          `json:"price"`
	StopLoss   *float64         `json:"stopLoss,omitempty"`
	TakeProfit *float64         `json:"takeProfit,omitempty"`
}

// StrategyRequest is the body for creating a new strategy.
type StrategyRequest struct {
	Name                 string              `json:"name"`
	Type                 models.StrategyType `json:"type"`
	TimeFrame            string              `json:"timeFrame"`
	Indicators           map[string]float64  `json:"indicators,omitempty"`
	StopLossPercentage   float64             `json:"stopLossPercentage"`
	TakeProfitPercentage float64             `json:"takeProfitPercentage"`
	MaxCapitalPercentage float64             `json:"maxCapitalPercentage"`
}

// newRequest builds a request with the bearer token attached when a
// session is active.
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	req := c.client.R().SetContext(ctx)
	if token, ok := c.holder.Token(); ok {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// doRequest executes the request behind the rate limiter and converts
// non-2xx responses into typed failures.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", url))
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, url, err)
	}

	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Message: errorMessage(resp)}
		c.logger.Warn("Backend returned an error",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	return resp, nil
}

// errorMessage extracts the backend message from an error response.
// JSON bodies are probed for the conventional message/error fields, text
// bodies pass through raw, and anything else falls back to the status.
func errorMessage(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return http.StatusText(resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(resp.Body(), &payload); err == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
		return body
	}
	if strings.Contains(contentType, "text/") {
		return body
	}
	return http.StatusText(resp.StatusCode())
}

// Login authenticates with the backend and installs the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var auth AuthResponse

	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&auth)

	if _, err := c.doRequest(ctx, resty.MethodPost, "/auth/login", req); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	c.installSession(&auth)
	return &auth, nil
}

// Register creates a new account and installs the returned session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var auth AuthResponse

	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"name": name, "email": email, "password": password}).
		SetResult(&auth)

	if _, err := c.doRequest(ctx, resty.MethodPost, "/auth/register", req); err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}

	c.installSession(&auth)
	return &auth, nil
}

func (c *Client) installSession(auth *AuthResponse) {
	user := auth.User
	c.holder.SetSession(auth.Token, &user)
	if c.tokens != nil {
		if err := c.tokens.Save(auth.Token); err != nil {
			c.logger.Warn("Failed to persist session token", zap.Error(err))
		}
	}
	c.logger.Info("Session established", zap.String("user", auth.User.Email))
}

// Logout clears the local session. It is purely local and needs no round
// trip to succeed; domain collections are the caller's responsibility to
// discard or reload.
func (c *Client) Logout() error {
	c.holder.Clear()
	if c.tokens != nil {
		if err := c.tokens.Delete(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	c.logger.Info("Session cleared")
	return nil
}

// ListTrades fetches the full trade snapshot for the session user.
func (c *Client) ListTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade

	req := c.newRequest(ctx).SetResult(&trades)
	if _, err := c.doRequest(ctx, resty.MethodGet, "/trades", req); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// SubmitTrade asks the backend to execute a new trade.
func (c *Client) SubmitTrade(ctx context.Context, trade TradeRequest) (*models.Trade, error) {
	var created models.Trade

	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(trade).
		SetResult(&created)

	if _, err := c.doRequest(ctx, resty.MethodPost, "/trades", req); err != nil {
		return nil, fmt.Errorf("failed to submit trade: %w", err)
	}

	c.logger.Info("Trade submitted",
		zap.String("symbol", trade.Symbol),
		zap.String("type", string(trade.Type)),
		zap.Float64("quantity", trade.Quantity),
	)
	return &created, nil
}

// CloseTrade asks the backend to close an open trade.
func (c *Client) CloseTrade(ctx context.Context, id string) (*models.Trade, error) {
	var closed models.Trade

	req := c.newRequest(ctx).SetResult(&closed)
	if _, err := c.doRequest(ctx, resty.MethodPost, "/trades/"+id+"/close", req); err != nil {
		return nil, fmt.Errorf("failed to close trade %s: %w", id, err)
	}
	return &closed, nil
}

// ListStrategies fetches the strategy snapshot for the session user.
func (c *Client) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	var strategies []models.Strategy

	req := c.newRequest(ctx).SetResult(&strategies)
	if _, err := c.doRequest(ctx, resty.MethodGet, "/strategies", req); err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	return strategies, nil
}

// CreateStrategy registers a new strategy with the backend.
func (c *Client) CreateStrategy(ctx context.Context, strategy StrategyRequest) (*models.Strategy, error) {
	var created models.Strategy

	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(strategy).
		SetResult(&created)

	if _, err := c.doRequest(ctx, resty.MethodPost, "/strategies", req); err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}
	return &created, nil
}

// ToggleStrategy flips a strategy between active and inactive.
func (c *Client) ToggleStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	var toggled models.Strategy

	req := c.newRequest(ctx).SetResult(&toggled)
	if _, err := c.doRequest(ctx, resty.MethodPost, "/strategies/"+id+"/toggle", req); err != nil {
		return nil, fmt.Errorf("failed to toggle strategy %s: %w", id, err)
	}
	return &toggled, nil
}

// ListNotifications fetches the notification snapshot for the session user.
func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification

	req := c.newRequest(ctx).SetResult(&notifications)
	if _, err := c.doRequest(ctx, resty.MethodGet, "/notifications", req); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	req := c.newRequest(ctx)
	if _, err := c.doRequest(ctx, resty.MethodPost, "/notifications/"+id+"/read", req); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead marks every notification of the session user
// as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	req := c.newRequest(ctx)
	if _, err := c.doRequest(ctx, resty.MethodPost, "/notifications/read-all", req); err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// HistoricalMarketData fetches OHLCV bars for charting.
func (c *Client) HistoricalMarketData(ctx context.Context, symbol, timeFrame string, limit int) ([]models.Candle, error) {
	var candles []models.Candle

	req := c.newRequest(ctx).
		SetQueryParam("timeFrame", timeFrame).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&candles)

	if _, err := c.doRequest(ctx, resty.MethodGet, "/market-data/historical/"+symbol, req); err != nil {
		return nil, fmt.Errorf("failed to fetch historical market data for %s: %w", symbol, err)
	}
	return candles, nil
}

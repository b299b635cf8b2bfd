package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trading-dashboard-go/internal/analytics"
	"trading-dashboard-go/internal/api"
	"trading-dashboard-go/internal/dashboard"
	"trading-dashboard-go/internal/models"

	"go.uber.org/zap"
)

// APIHandler exposes the sync service to the UI layer. It holds no state
// of its own: reads are snapshot projections, writes are intents.
type APIHandler struct {
	log *zap.Logger
	svc *dashboard.Service
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *dashboard.Service) *APIHandler {
	return &APIHandler{log: log, svc: svc}
}

// Register mounts all endpoints on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.LoginHandler)
	mux.HandleFunc("POST /api/register", h.RegisterHandler)
	mux.HandleFunc("POST /api/logout", h.LogoutHandler)
	mux.HandleFunc("GET /api/state", h.StateHandler)
	mux.HandleFunc("GET /api/trades", h.TradesHandler)
	mux.HandleFunc("POST /api/trades", h.SubmitTradeHandler)
	mux.HandleFunc("POST /api/trades/close", h.CloseTradeHandler)
	mux.HandleFunc("POST /api/strategies", h.CreateStrategyHandler)
	mux.HandleFunc("POST /api/strategies/toggle", h.ToggleStrategyHandler)
	mux.HandleFunc("POST /api/notifications/read", h.MarkReadHandler)
	mux.HandleFunc("POST /api/notifications/read-all", h.MarkAllReadHandler)
	mux.HandleFunc("GET /api/market-data/historical", h.HistoricalHandler)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}
	http.Error(w, err.Error(), status)
}

// LoginHandler authenticates and kicks off the sync cycle.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.Login(r.Context(), body.Email, body.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.StateHandler(w, r)
}

// RegisterHandler creates an account and kicks off the sync cycle.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.Register(r.Context(), body.Name, body.Email, body.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.StateHandler(w, r)
}

// LogoutHandler clears the session and discards the domain snapshot.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stateResponse is the full snapshot plus the derived header numbers.
type stateResponse struct {
	User          *models.User          `json:"user"`
	Authenticated bool                  `json:"authenticated"`
	Trades        []models.Trade        `json:"trades"`
	Strategies    []models.Strategy     `json:"strategies"`
	MarketData    []models.MarketData   `json:"marketData"`
	Notifications []models.Notification `json:"notifications"`
	IsLoading     bool                  `json:"isLoading"`
	Summary       analytics.Summary     `json:"summary"`
}

// StateHandler returns the current snapshot and its analytics summary.
func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.svc.Store().Snapshot()
	h.writeJSON(w, stateResponse{
		User:          snapshot.User,
		Authenticated: snapshot.Authenticated,
		Trades:        snapshot.Trades,
		Strategies:    snapshot.Strategies,
		MarketData:    snapshot.MarketData,
		Notifications: snapshot.Notifications,
		IsLoading:     snapshot.IsLoading,
		Summary:       analytics.Summarize(snapshot, time.Now()),
	})
}

// TradesHandler returns trades filtered by the optional range and type
// query parameters.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	trades := h.svc.Store().Snapshot().Trades

	if rangeKey := r.URL.Query().Get("range"); rangeKey != "" {
		trades = analytics.FilterByRange(trades, analytics.RangeKey(rangeKey), time.Now())
	}
	if side := r.URL.Query().Get("type"); side != "" {
		trades = analytics.FilterBySide(trades, models.TradeSide(side))
	}

	h.writeJSON(w, map[string]any{
		"trades":   trades,
		"totalPnL": analytics.TotalPnL(trades),
		"winRate":  analytics.WinRate(trades),
	})
}

// SubmitTradeHandler forwards a new trade intent to the backend.
func (h *APIHandler) SubmitTradeHandler(w http.ResponseWriter, r *http.Request) {
	var req api.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.svc.SubmitTrade(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, created)
}

// CloseTradeHandler asks the backend to close a trade.
func (h *APIHandler) CloseTradeHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.CloseTrade(r.Context(), body.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateStrategyHandler forwards a new strategy intent to the backend.
func (h *APIHandler) CreateStrategyHandler(w http.ResponseWriter, r *http.Request) {
	var req api.StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.svc.CreateStrategy(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, created)
}

// ToggleStrategyHandler flips a strategy's active flag.
func (h *APIHandler) ToggleStrategyHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.ToggleStrategy(r.Context(), body.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkReadHandler marks a single notification as read.
func (h *APIHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkNotificationRead(r.Context(), body.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllReadHandler marks every unread notification as read.
func (h *APIHandler) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkAllNotificationsRead(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoricalHandler proxies the historical market data fetch for charts.
func (h *APIHandler) HistoricalHandler(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	timeFrame := r.URL.Query().Get("timeFrame")
	if timeFrame == "" {
		timeFrame = "1m"
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	candles, err := h.svc.HistoricalMarketData(r.Context(), symbol, timeFrame, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, candles)
}

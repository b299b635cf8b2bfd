package models

// StrategyType identifies the kind of trading strategy.
type StrategyType string

const (
	StrategyEMACrossover StrategyType = "EMA_CROSSOVER"
	StrategyRSI          StrategyType = "RSI"
	StrategyMACD         StrategyType = "MACD"
	StrategyCustom       StrategyType = "CUSTOM"
)

// RiskManagement holds the risk thresholds of a strategy, as percentages.
type RiskManagement struct {
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
	MaxCapital float64 `json:"maxCapital"`
}

// StrategyParameters configures how a strategy evaluates the market.
type StrategyParameters struct {
	TimeFrame      string             `json:"timeFrame"`
	Indicators     map[string]float64 `json:"indicators"`
	RiskManagement RiskManagement     `json:"riskManagement"`
}

// StrategyPerformance is computed by the backend and pushed to clients.
// It is never derived or mutated locally.
type StrategyPerformance struct {
	TotalTrades int     `json:"totalTrades"`
	WinRate     float64 `json:"winRate"`
	AvgPnL      float64 `json:"avgPnL"`
}

// Strategy represents an automated trading strategy owned by the user.
type Strategy struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Type        StrategyType        `json:"type"`
	IsActive    bool                `json:"isActive"`
	Parameters  StrategyParameters  `json:"parameters"`
	Performance StrategyPerformance `json:"performance"`
}

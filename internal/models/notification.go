package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyTradeExecuted     NotificationType = "TRADE_EXECUTED"
	NotifyStrategyTriggered NotificationType = "STRATEGY_TRIGGERED"
	NotifyRiskAlert         NotificationType = "RISK_ALERT"
	NotifySystem            NotificationType = "SYSTEM"
)

// Priority orders notifications for display.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Notification is a user-facing alert. The read flag is monotonic: once
// marked read it never reverts.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	Priority  Priority         `json:"priority"`
}

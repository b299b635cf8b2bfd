package models

// User represents the authenticated account holder.
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"` // "admin" or "user"
	AccountBalance float64 `json:"accountBalance"`
	TotalPnL       float64 `json:"totalPnL"`
	OpenPositions  int     `json:"openPositions"`
}

package session

import (
	"sync"

	"trading-dashboard-go/internal/models"
)

// Holder owns the current authentication state. It is constructed once at
// startup and shared read-only by the request gateway and the feed client;
// only login/logout intents mutate it.
type Holder struct {
	mu    sync.RWMutex
	token string
	user  *models.User
}

// NewHolder creates an empty, unauthenticated holder.
func NewHolder() *Holder {
	return &Holder{}
}

// SetSession installs a token and the user it belongs to.
func (h *Holder) SetSession(token string, user *models.User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.user = user
}

// SetToken installs a token without user details, e.g. when restoring a
// persisted token at startup before the user profile has been fetched.
func (h *Holder) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

// Token returns the current token and whether one is present.
func (h *Holder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

// User returns the current user, or nil when not authenticated.
func (h *Holder) User() *models.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// Authenticated reports whether a session token is present.
func (h *Holder) Authenticated() bool {
	_, ok := h.Token()
	return ok
}

// Clear drops the token and user. Called on logout and on rejected
// credentials.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
	h.user = nil
}

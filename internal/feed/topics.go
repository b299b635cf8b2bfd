package feed

// Topic names of the backend push channel. The trades and notifications
// streams are scoped to the session user by the server.
const (
	TopicTrades        = "trades"
	TopicNotifications = "notifications"
	TopicAllMarketData = "market-data/all"
)

// MarketDataTopic returns the per-symbol quote stream topic.
func MarketDataTopic(symbol string) string {
	return "market-data/" + symbol
}

package domain

// PriceAlert is emitted when a pool's price moves past the configured
// threshold between two accepted updates. Ephemeral: derived, published,
// discarded.
type PriceAlert struct {
	PoolAddress string
	OldPrice    float64
	NewPrice    float64

	// PercentChange is the relative move (new-old)/old, so a 2% drop is
	// -0.02, the same scale the alert threshold is configured in.
	PercentChange   float64
	TriggeredAtSlot int64
}

// MarketSnapshot is one point of the per-pool price/liquidity timeseries
// persisted for analytics.
type MarketSnapshot struct {
	PoolAddress string
	Protocol    Protocol
	Slot        int64
	Timestamp   int64 // unix milliseconds
	Price       float64
	Liquidity   float64
	TradeCount  int64
	SwapVolume  float64
}

package domain

// RouteType classifies how a swap executed across pools. It is a
// best-effort annotation derived from instruction names and log text,
// not authoritative.
type RouteType string

const (
	RouteDirect   RouteType = "direct"
	RouteSplit    RouteType = "split"
	RouteMultiHop RouteType = "multi_hop"
	RouteUnknown  RouteType = "unknown"
)

// TokenAmount is one leg of a swap in UI units (decimal-scaled).
type TokenAmount struct {
	Mint   string
	Amount float64
}

// SwapEvent is a protocol-agnostic swap reconstructed from one
// transaction's balance deltas. At most one is produced per transaction;
// ambiguous transactions produce none.
type SwapEvent struct {
	Signature   string
	Slot        int64
	BlockTime   int64 // unix seconds
	PoolAddress string
	Protocol    Protocol
	Actor       string
	InputToken  TokenAmount
	OutputToken TokenAmount
	RouteType   RouteType
	EventIndex  int
}

// LiquidityEvent records an add or remove of pool liquidity.
type LiquidityEvent struct {
	Signature   string
	Slot        int64
	BlockTime   int64
	PoolAddress string
	Protocol    Protocol
	EventType   string // "add" or "remove"
	AmountA     uint64
	AmountB     uint64
	EventIndex  int
}

// Liquidity event types.
const (
	LiquidityAdd    = "add"
	LiquidityRemove = "remove"
)

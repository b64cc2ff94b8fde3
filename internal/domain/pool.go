package domain

// TokenSide describes one side of a pool as decoded from its account.
// Reserve is in raw integer units; decimal scaling is the caller's job.
type TokenSide struct {
	Mint     string
	Reserve  uint64
	Decimals uint8
}

// PoolAccount is an immutable snapshot decoded from a pool's account data.
// A fresh value is produced on every decode and never mutated afterwards.
type PoolAccount struct {
	Protocol Protocol
	TokenA   TokenSide
	TokenB   TokenSide

	FeeNumerator   uint64
	FeeDenominator uint64

	// Extra holds protocol-specific numeric fields keyed by layout field
	// name (e.g. sqrt_price_lo/hi for Orca, price_num/price_den for
	// Jupiter v2).
	Extra map[string]uint64
}

// AccountRef is one entry of an instruction's account list.
type AccountRef struct {
	Pubkey     string
	IsSigner   bool
	IsWritable bool
}

// InstructionKind classifies what a decoded instruction does to a pool.
type InstructionKind int

const (
	InstructionOther InstructionKind = iota
	InstructionSwap
	InstructionAddLiquidity
	InstructionRemoveLiquidity
)

// Instruction is a decoded AMM instruction, in transaction order.
// Ordering is significant: inner instructions reference account indexes
// established by their outer instruction.
type Instruction struct {
	ProgramID string
	Protocol  Protocol
	Name      string
	Kind      InstructionKind
	Args      map[string]uint64
	Accounts  []AccountRef

	// PoolAddress is the pool account referenced by this instruction,
	// "" when the layout does not bind one.
	PoolAddress string
}

// PoolState is the latest known state of one tracked pool. It is owned by
// the tracker; everyone else sees copies.
type PoolState struct {
	PoolAddress string
	Protocol    Protocol

	ReserveA  uint64
	ReserveB  uint64
	DecimalsA uint8
	DecimalsB uint8
	MintA     string
	MintB     string

	FeeRate   float64
	LastPrice float64

	LastUpdateSlot int64
	// LastSeen is the unix-millisecond timestamp of the most recent
	// accepted update, used for inactivity eviction.
	LastSeen int64

	// Rolling trade accounting fed by observed swaps.
	TradeCount  int64
	SwapVolume  float64
	Liquidity   float64
	StaleCount  int64
	DecodeFails int64
}

package amm

import (
	"fmt"

	"solana-pool-monitor/internal/domain"
)

// Registry maps protocols to their account layouts and programs to their
// instruction layouts. Built once at startup; read-only afterwards, so it
// is safe for concurrent use. Adding an AMM protocol is a data addition
// here plus a Protocol variant, nothing else.
type Registry struct {
	accounts     map[domain.Protocol]*AccountLayout
	instructions map[string][]InstructionLayout
}

// NewRegistry builds a validated registry. An invalid layout is a fatal
// configuration error; callers must halt initialization.
func NewRegistry(accounts []AccountLayout, instructions map[string][]InstructionLayout) (*Registry, error) {
	r := &Registry{
		accounts:     make(map[domain.Protocol]*AccountLayout, len(accounts)),
		instructions: make(map[string][]InstructionLayout, len(instructions)),
	}

	for i := range accounts {
		l := accounts[i]
		if err := l.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.accounts[l.Protocol]; ok {
			return nil, fmt.Errorf("duplicate account layout for %s", l.Protocol)
		}
		r.accounts[l.Protocol] = &l
	}

	for program, layouts := range instructions {
		if domain.ResolveProtocol(program) == domain.ProtocolUnknown {
			return nil, fmt.Errorf("instruction layouts for unregistered program %s", program)
		}
		seen := make(map[string]bool, len(layouts))
		for i := range layouts {
			if err := layouts[i].validate(program); err != nil {
				return nil, err
			}
			key := string(layouts[i].Discriminator)
			if seen[key] {
				return nil, fmt.Errorf("program %s: duplicate discriminator for %s", program, layouts[i].Name)
			}
			seen[key] = true
		}
		r.instructions[program] = layouts
	}

	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error, for static tables.
func MustNewRegistry(accounts []AccountLayout, instructions map[string][]InstructionLayout) *Registry {
	r, err := NewRegistry(accounts, instructions)
	if err != nil {
		panic(err)
	}
	return r
}

// AccountLayout returns the account layout for a protocol, nil if the
// protocol has none (aggregator routers own no pool accounts).
func (r *Registry) AccountLayout(p domain.Protocol) *AccountLayout {
	return r.accounts[p]
}

// InstructionLayouts returns the instruction layouts for a program ID.
func (r *Registry) InstructionLayouts(programID string) []InstructionLayout {
	return r.instructions[programID]
}

// Protocols returns the protocols with a registered account layout.
func (r *Registry) Protocols() []domain.Protocol {
	out := make([]domain.Protocol, 0, len(r.accounts))
	for p := range r.accounts {
		out = append(out, p)
	}
	return out
}

// DefaultRegistry builds the registry for the supported AMMs.
//
// Orca offsets follow the on-chain Whirlpool account. Raydium offsets
// follow the AMM v4 liquidity state fields this pipeline reads. Jupiter
// v2 pools use the token-swap style layout with an authoritative price
// fraction. Jupiter v6 is a router: it has instruction layouts but owns
// no pool account, so account decodes against it fail with
// UnknownProtocol by construction.
func DefaultRegistry() *Registry {
	accounts := []AccountLayout{
		{
			Protocol: domain.ProtocolRaydium,
			MinLen:   464,
			Fields: []Field{
				{Name: "status", Type: FieldU64, Offset: 0},
				{Name: FieldDecimalsA, Type: FieldU64, Offset: 32, Max: 18},
				{Name: FieldDecimalsB, Type: FieldU64, Offset: 40, Max: 18},
				{Name: FieldFeeNumerator, Type: FieldU64, Offset: 144},
				{Name: FieldFeeDenominator, Type: FieldU64, Offset: 152, NonZero: true},
				{Name: FieldReserveA, Type: FieldU64, Offset: 192},
				{Name: FieldReserveB, Type: FieldU64, Offset: 200},
				{Name: FieldTokenAMint, Type: FieldPubkey, Offset: 400},
				{Name: FieldTokenBMint, Type: FieldPubkey, Offset: 432},
			},
		},
		{
			Protocol: domain.ProtocolOrca,
			MinLen:   245,
			// Whirlpool fee_rate is in hundredths of a basis point
			ImplicitFeeDenominator: 1_000_000,
			Fields: []Field{
				{Name: FieldFeeNumerator, Type: FieldU16, Offset: 45},
				{Name: "liquidity", Type: FieldU128, Offset: 49},
				{Name: "sqrt_price", Type: FieldU128, Offset: 65},
				{Name: FieldTokenAMint, Type: FieldPubkey, Offset: 101},
				{Name: FieldTokenBMint, Type: FieldPubkey, Offset: 181},
			},
		},
		{
			Protocol: domain.ProtocolJupiterV2,
			MinLen:   116,
			Fields: []Field{
				{Name: "version", Type: FieldU8, Offset: 0},
				{Name: "nonce", Type: FieldU8, Offset: 1},
				{Name: FieldTokenAMint, Type: FieldPubkey, Offset: 2},
				{Name: FieldTokenBMint, Type: FieldPubkey, Offset: 34},
				{Name: FieldReserveA, Type: FieldU64, Offset: 66},
				{Name: FieldReserveB, Type: FieldU64, Offset: 74},
				{Name: FieldDecimalsA, Type: FieldU8, Offset: 82, Max: 18},
				{Name: FieldDecimalsB, Type: FieldU8, Offset: 83, Max: 18},
				{Name: FieldFeeNumerator, Type: FieldU64, Offset: 84},
				{Name: FieldFeeDenominator, Type: FieldU64, Offset: 92, NonZero: true},
				{Name: "price_num", Type: FieldU64, Offset: 100},
				{Name: "price_den", Type: FieldU64, Offset: 108},
			},
		},
	}

	instructions := map[string][]InstructionLayout{
		domain.RaydiumAMMV4Program: {
			{
				Name:          "swap_base_in",
				Kind:          domain.InstructionSwap,
				Discriminator: []byte{0x09},
				MinLen:        17,
				Args: []Field{
					{Name: "amount_in", Type: FieldU64, Offset: 1},
					{Name: "minimum_amount_out", Type: FieldU64, Offset: 9},
				},
				PoolAccountIndex: 1,
			},
			{
				Name:          "swap_base_out",
				Kind:          domain.InstructionSwap,
				Discriminator: []byte{0x0b},
				MinLen:        17,
				Args: []Field{
					{Name: "max_amount_in", Type: FieldU64, Offset: 1},
					{Name: "amount_out", Type: FieldU64, Offset: 9},
				},
				PoolAccountIndex: 1,
			},
			{
				Name:          "deposit",
				Kind:          domain.InstructionAddLiquidity,
				Discriminator: []byte{0x03},
				MinLen:        25,
				Args: []Field{
					{Name: "max_coin_amount", Type: FieldU64, Offset: 1},
					{Name: "max_pc_amount", Type: FieldU64, Offset: 9},
					{Name: "base_side", Type: FieldU64, Offset: 17},
				},
				PoolAccountIndex: 1,
			},
			{
				Name:          "withdraw",
				Kind:          domain.InstructionRemoveLiquidity,
				Discriminator: []byte{0x04},
				MinLen:        9,
				Args: []Field{
					{Name: "amount", Type: FieldU64, Offset: 1},
				},
				PoolAccountIndex: 1,
			},
		},
		domain.OrcaWhirlpoolProgram: {
			{
				Name:          "swap",
				Kind:          domain.InstructionSwap,
				Discriminator: []byte{0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8},
				MinLen:        24,
				Args: []Field{
					{Name: "amount", Type: FieldU64, Offset: 8},
					{Name: "other_amount_threshold", Type: FieldU64, Offset: 16},
				},
				PoolAccountIndex: 2,
			},
			{
				Name:          "increase_liquidity",
				Kind:          domain.InstructionAddLiquidity,
				Discriminator: []byte{0x2e, 0x9c, 0xf3, 0x76, 0x0d, 0xcd, 0xfb, 0xb2},
				MinLen:        40,
				Args: []Field{
					{Name: "liquidity", Type: FieldU128, Offset: 8},
					{Name: "token_max_a", Type: FieldU64, Offset: 24},
					{Name: "token_max_b", Type: FieldU64, Offset: 32},
				},
				PoolAccountIndex: 0,
			},
			{
				Name:          "decrease_liquidity",
				Kind:          domain.InstructionRemoveLiquidity,
				Discriminator: []byte{0xa0, 0x26, 0xd0, 0x6f, 0x68, 0x5b, 0x2c, 0x01},
				MinLen:        40,
				Args: []Field{
					{Name: "liquidity", Type: FieldU128, Offset: 8},
					{Name: "token_min_a", Type: FieldU64, Offset: 24},
					{Name: "token_min_b", Type: FieldU64, Offset: 32},
				},
				PoolAccountIndex: 0,
			},
		},
		domain.JupiterV2Program: {
			{
				Name:          "swap",
				Kind:          domain.InstructionSwap,
				Discriminator: []byte{0x01},
				MinLen:        17,
				Args: []Field{
					{Name: "amount_in", Type: FieldU64, Offset: 1},
					{Name: "minimum_amount_out", Type: FieldU64, Offset: 9},
				},
				PoolAccountIndex: 0,
			},
			{
				Name:          "deposit_all_token_types",
				Kind:          domain.InstructionAddLiquidity,
				Discriminator: []byte{0x02},
				MinLen:        25,
				Args: []Field{
					{Name: "pool_token_amount", Type: FieldU64, Offset: 1},
					{Name: "maximum_token_a_amount", Type: FieldU64, Offset: 9},
					{Name: "maximum_token_b_amount", Type: FieldU64, Offset: 17},
				},
				PoolAccountIndex: 0,
			},
			{
				Name:          "withdraw_all_token_types",
				Kind:          domain.InstructionRemoveLiquidity,
				Discriminator: []byte{0x03},
				MinLen:        25,
				Args: []Field{
					{Name: "pool_token_amount", Type: FieldU64, Offset: 1},
					{Name: "minimum_token_a_amount", Type: FieldU64, Offset: 9},
					{Name: "minimum_token_b_amount", Type: FieldU64, Offset: 17},
				},
				PoolAccountIndex: 0,
			},
		},
		domain.JupiterV6Program: {
			{
				Name:             "route",
				Kind:             domain.InstructionSwap,
				Discriminator:    []byte{0xe5, 0x17, 0xcb, 0x97, 0x7a, 0xe3, 0xad, 0x2a},
				MinLen:           8,
				PoolAccountIndex: -1,
			},
			{
				Name:             "shared_accounts_route",
				Kind:             domain.InstructionSwap,
				Discriminator:    []byte{0xc1, 0x20, 0x9b, 0x33, 0x41, 0xd6, 0x9c, 0x81},
				MinLen:           8,
				PoolAccountIndex: -1,
			},
		},
	}

	return MustNewRegistry(accounts, instructions)
}

package normalizer

import (
	"math"
	"sort"
	"strings"

	"github.com/mr-tron/base58"

	"solana-pool-monitor/internal/amm"
	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/solana"
)

// Events is the outcome of normalizing one transaction. At most one
// SwapEvent per transaction; ambiguity yields none, never a guess.
type Events struct {
	Swap      *domain.SwapEvent
	Liquidity []domain.LiquidityEvent

	// Instructions are the successfully decoded AMM instructions, in
	// transaction order (outer then inner per outer index).
	Instructions []*domain.Instruction

	// Ambiguous is set when more than one actor qualified and the swap
	// was therefore suppressed. Counted for observability.
	Ambiguous bool

	// DecodeErrs are per-instruction decode failures from registered
	// programs. They never abort sibling instructions.
	DecodeErrs []*amm.DecodeError
}

// Normalizer reconstructs protocol-agnostic swap and liquidity events
// from raw transactions. Pure function of its inputs; no I/O.
type Normalizer struct {
	registry *amm.Registry
}

func New(registry *amm.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// tokenDelta is the net UI-amount change for one (owner, mint) pair.
type tokenDelta struct {
	owner string
	mint  string
	delta float64
	// accountIndex is the smallest balance-entry index observed for the
	// pair, used as the tie-breaker between equal-magnitude legs.
	accountIndex int
}

// Normalize reconstructs events from one transaction. A transaction with
// zero token-balance changes yields no events; that is not an error. A
// failed transaction is normalized only for liquidity bookkeeping, never
// for a SwapEvent, since its balance deltas are not authoritative.
func (n *Normalizer) Normalize(tx *solana.Transaction) Events {
	var out Events
	if tx == nil {
		return out
	}

	out.Instructions, out.DecodeErrs = n.decodeInstructions(tx)
	out.Liquidity = n.liquidityEvents(tx, out.Instructions)

	if tx.Meta.Failed() {
		return out
	}

	deltas := balanceDeltas(tx)
	if len(deltas) == 0 {
		return out
	}

	actors := swapActors(deltas)
	switch len(actors) {
	case 0:
		return out
	case 1:
	default:
		out.Ambiguous = true
		return out
	}

	actor := actors[0]
	input, output := swapLegs(deltas, actor)
	if input == nil || output == nil {
		return out
	}

	swap := &domain.SwapEvent{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		BlockTime:   tx.BlockTime,
		Actor:       actor,
		InputToken:  domain.TokenAmount{Mint: input.mint, Amount: -input.delta},
		OutputToken: domain.TokenAmount{Mint: output.mint, Amount: output.delta},
		RouteType:   classifyRoute(tx, out.Instructions),
	}
	swap.PoolAddress, swap.Protocol = n.resolvePool(tx, out.Instructions, actor, deltas)

	out.Swap = swap
	return out
}

// decodeInstructions decodes every outer and inner instruction belonging
// to a registered AMM program. Unregistered programs (system, token,
// memo and the rest) are skipped silently.
func (n *Normalizer) decodeInstructions(tx *solana.Transaction) ([]*domain.Instruction, []*amm.DecodeError) {
	if tx.Message == nil {
		return nil, nil
	}

	var instrs []*domain.Instruction
	var decodeErrs []*amm.DecodeError

	decodeOne := func(ci solana.CompiledInstruction) {
		programID := keyAt(tx.Message.AccountKeys, ci.ProgramIDIndex)
		if programID == "" || len(n.registry.InstructionLayouts(programID)) == 0 {
			return
		}

		data, err := base58.Decode(ci.Data)
		if err != nil {
			return
		}

		accounts := make([]domain.AccountRef, 0, len(ci.Accounts))
		for _, idx := range ci.Accounts {
			accounts = append(accounts, domain.AccountRef{Pubkey: keyAt(tx.Message.AccountKeys, idx)})
		}

		instr, err := n.registry.DecodeInstruction(programID, data, accounts)
		if err != nil {
			if de := amm.AsDecodeError(err); de != nil {
				decodeErrs = append(decodeErrs, de)
			}
			return
		}
		instrs = append(instrs, instr)
	}

	inner := make(map[int][]solana.CompiledInstruction)
	if tx.Meta != nil {
		for _, set := range tx.Meta.InnerInstructions {
			inner[set.Index] = set.Instructions
		}
	}

	for i, ci := range tx.Message.Instructions {
		decodeOne(ci)
		for _, ic := range inner[i] {
			decodeOne(ic)
		}
	}

	return instrs, decodeErrs
}

// balanceDeltas computes net per-(owner, mint) UI-amount changes from the
// pre/post token balance snapshots.
func balanceDeltas(tx *solana.Transaction) []tokenDelta {
	if tx.Meta == nil {
		return nil
	}

	type key struct {
		owner string
		mint  string
	}

	acc := make(map[key]*tokenDelta)
	apply := func(balances []solana.TokenBalance, sign float64) {
		for _, b := range balances {
			owner := b.Owner
			if owner == "" && tx.Message != nil {
				owner = keyAt(tx.Message.AccountKeys, b.AccountIndex)
			}
			if owner == "" {
				continue
			}

			k := key{owner: owner, mint: b.Mint}
			d, ok := acc[k]
			if !ok {
				d = &tokenDelta{owner: owner, mint: b.Mint, accountIndex: b.AccountIndex}
				acc[k] = d
			}
			d.delta += sign * b.UIAmount
			if b.AccountIndex < d.accountIndex {
				d.accountIndex = b.AccountIndex
			}
		}
	}

	apply(tx.Meta.PreTokenBalances, -1)
	apply(tx.Meta.PostTokenBalances, 1)

	out := make([]tokenDelta, 0, len(acc))
	for _, d := range acc {
		if d.delta != 0 {
			out = append(out, *d)
		}
	}

	// Deterministic order regardless of map iteration
	sort.Slice(out, func(i, j int) bool {
		if out[i].accountIndex != out[j].accountIndex {
			return out[i].accountIndex < out[j].accountIndex
		}
		return out[i].mint < out[j].mint
	})

	return out
}

// swapActors returns every owner with at least one outflow and at least
// one inflow in the same transaction, in first-seen order.
func swapActors(deltas []tokenDelta) []string {
	hasOut := make(map[string]bool)
	hasIn := make(map[string]bool)
	var order []string
	seen := make(map[string]bool)

	for _, d := range deltas {
		if !seen[d.owner] {
			seen[d.owner] = true
			order = append(order, d.owner)
		}
		if d.delta < 0 {
			hasOut[d.owner] = true
		} else if d.delta > 0 {
			hasIn[d.owner] = true
		}
	}

	var actors []string
	for _, owner := range order {
		if hasOut[owner] && hasIn[owner] {
			actors = append(actors, owner)
		}
	}
	return actors
}

// swapLegs picks the largest-magnitude outflow as the input leg and the
// largest-magnitude inflow as the output leg. Ties are broken by the
// earliest account index, which the deltas slice is already sorted by.
func swapLegs(deltas []tokenDelta, actor string) (input, output *tokenDelta) {
	for i := range deltas {
		d := &deltas[i]
		if d.owner != actor {
			continue
		}
		if d.delta < 0 {
			if input == nil || math.Abs(d.delta) > math.Abs(input.delta) {
				input = d
			}
		} else if d.delta > 0 {
			if output == nil || d.delta > output.delta {
				output = d
			}
		}
	}
	return input, output
}

// resolvePool finds the pool a swap executed against: the first decoded
// swap instruction that binds one, then the ray_log pool, then the first
// account key that is neither the actor, a registered program, nor a
// mint seen in the balance snapshots.
func (n *Normalizer) resolvePool(tx *solana.Transaction, instrs []*domain.Instruction, actor string, deltas []tokenDelta) (string, domain.Protocol) {
	for _, in := range instrs {
		if in.Kind == domain.InstructionSwap && in.PoolAddress != "" {
			return in.PoolAddress, in.Protocol
		}
	}

	if tx.Meta != nil {
		for _, line := range tx.Meta.LogMessages {
			rl, ok := amm.ParseRayLog(line)
			if ok && rl.Kind == amm.RayLogSwap && rl.Pool != "" {
				return rl.Pool, domain.ProtocolRaydium
			}
		}
	}

	if tx.Message == nil {
		return "", domain.ProtocolUnknown
	}

	mints := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		mints[d.mint] = true
	}

	for _, key := range tx.Message.AccountKeys {
		if key == actor || mints[key] || key == domain.WSOL {
			continue
		}
		if domain.ResolveProtocol(key) != domain.ProtocolUnknown {
			continue
		}
		return key, domain.ProtocolUnknown
	}

	return "", domain.ProtocolUnknown
}

// liquidityEvents extracts add/remove liquidity events from decoded
// instructions, produced even for failed transactions (informational
// bookkeeping only).
func (n *Normalizer) liquidityEvents(tx *solana.Transaction, instrs []*domain.Instruction) []domain.LiquidityEvent {
	var events []domain.LiquidityEvent

	for _, in := range instrs {
		var eventType string
		switch in.Kind {
		case domain.InstructionAddLiquidity:
			eventType = domain.LiquidityAdd
		case domain.InstructionRemoveLiquidity:
			eventType = domain.LiquidityRemove
		default:
			continue
		}

		ev := domain.LiquidityEvent{
			Signature:   tx.Signature,
			Slot:        tx.Slot,
			BlockTime:   tx.BlockTime,
			PoolAddress: in.PoolAddress,
			Protocol:    in.Protocol,
			EventType:   eventType,
			EventIndex:  len(events),
		}
		ev.AmountA, ev.AmountB = liquidityAmounts(in)
		events = append(events, ev)
	}

	return events
}

// liquidityAmounts picks the two token amounts out of an instruction's
// args, tolerating the per-protocol arg naming.
func liquidityAmounts(in *domain.Instruction) (a, b uint64) {
	pairs := [][2]string{
		{"max_coin_amount", "max_pc_amount"},
		{"token_max_a", "token_max_b"},
		{"token_min_a", "token_min_b"},
		{"maximum_token_a_amount", "maximum_token_b_amount"},
		{"minimum_token_a_amount", "minimum_token_b_amount"},
	}
	for _, p := range pairs {
		av, aok := in.Args[p[0]]
		bv, bok := in.Args[p[1]]
		if aok || bok {
			return av, bv
		}
	}
	if v, ok := in.Args["amount"]; ok {
		return v, 0
	}
	return 0, 0
}

// classifyRoute annotates how the swap executed. Best-effort, never
// authoritative: exactly one AMM swap instruction means direct, router
// instructions or multiple swap legs mean multi-hop, and an explicit
// split marker in the logs means split.
func classifyRoute(tx *solana.Transaction, instrs []*domain.Instruction) domain.RouteType {
	swapCount := 0
	routed := false
	for _, in := range instrs {
		if in.Kind != domain.InstructionSwap {
			continue
		}
		swapCount++
		if strings.Contains(in.Name, "route") {
			routed = true
		}
	}

	if tx.Meta != nil {
		for _, line := range tx.Meta.LogMessages {
			if strings.Contains(strings.ToLower(line), "split") {
				return domain.RouteSplit
			}
		}
	}

	switch {
	case routed:
		return domain.RouteMultiHop
	case swapCount == 1:
		return domain.RouteDirect
	case swapCount > 1:
		return domain.RouteMultiHop
	default:
		return domain.RouteUnknown
	}
}

func keyAt(keys []string, idx int) string {
	if idx < 0 || idx >= len(keys) {
		return ""
	}
	return keys[idx]
}

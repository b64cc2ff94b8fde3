package amm

import (
	"fmt"
	"sort"

	"solana-pool-monitor/internal/domain"
)

// FieldType is the wire type of a layout field. All multi-byte integers
// are little-endian, matching the chain's native encoding.
type FieldType int

const (
	FieldU8 FieldType = iota
	FieldU16
	FieldU32
	FieldU64
	FieldU128
	FieldPubkey
)

// Width returns the field's byte width.
func (t FieldType) Width() int {
	switch t {
	case FieldU8:
		return 1
	case FieldU16:
		return 2
	case FieldU32:
		return 4
	case FieldU64:
		return 8
	case FieldU128:
		return 16
	case FieldPubkey:
		return 32
	default:
		return 0
	}
}

func (t FieldType) String() string {
	switch t {
	case FieldU8:
		return "u8"
	case FieldU16:
		return "u16"
	case FieldU32:
		return "u32"
	case FieldU64:
		return "u64"
	case FieldU128:
		return "u128"
	case FieldPubkey:
		return "pubkey"
	default:
		return "invalid"
	}
}

// Field is one entry of a binary layout. Fields with one of the canonical
// names below map onto PoolAccount directly; any other numeric field lands
// in PoolAccount.Extra under its name (u128 fields as name_lo/name_hi).
type Field struct {
	Name   string
	Type   FieldType
	Offset int

	// Max rejects decoded values above it when non-zero. NonZero rejects
	// zero values. Both produce FieldOutOfRange.
	Max     uint64
	NonZero bool
}

func (f Field) end() int {
	return f.Offset + f.Type.Width()
}

// Canonical account field names.
const (
	FieldTokenAMint     = "token_a_mint"
	FieldTokenBMint     = "token_b_mint"
	FieldReserveA       = "reserve_a"
	FieldReserveB       = "reserve_b"
	FieldDecimalsA      = "decimals_a"
	FieldDecimalsB      = "decimals_b"
	FieldFeeNumerator   = "fee_numerator"
	FieldFeeDenominator = "fee_denominator"
)

// AccountLayout describes how to decode one protocol's pool account.
type AccountLayout struct {
	Protocol domain.Protocol
	// MinLen is the minimum buffer length; shorter buffers fail with
	// BufferTooShort.
	MinLen int
	Fields []Field

	// ImplicitFeeDenominator supplies the denominator for protocols that
	// encode only a fee rate (Orca stores hundredths of basis points).
	// A fee_denominator field, when present, takes precedence.
	ImplicitFeeDenominator uint64
}

// validate checks layout internal consistency. Violations are fatal
// configuration errors raised once at startup.
func (l *AccountLayout) validate() error {
	if l.Protocol == domain.ProtocolUnknown {
		return fmt.Errorf("account layout without protocol")
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("account layout %s: no fields", l.Protocol)
	}

	sorted := make([]Field, len(l.Fields))
	copy(sorted, l.Fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	seen := make(map[string]bool, len(sorted))
	for i, f := range sorted {
		if f.Name == "" {
			return fmt.Errorf("account layout %s: unnamed field at offset %d", l.Protocol, f.Offset)
		}
		if f.Type.Width() == 0 {
			return fmt.Errorf("account layout %s: field %s has invalid type", l.Protocol, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("account layout %s: duplicate field %s", l.Protocol, f.Name)
		}
		seen[f.Name] = true

		if i > 0 && f.Offset < sorted[i-1].end() {
			return fmt.Errorf("account layout %s: fields %s and %s overlap",
				l.Protocol, sorted[i-1].Name, f.Name)
		}
		if f.end() > l.MinLen {
			return fmt.Errorf("account layout %s: field %s ends at %d past MinLen %d",
				l.Protocol, f.Name, f.end(), l.MinLen)
		}
	}

	return nil
}

// InstructionLayout describes one instruction variant of a program,
// selected by its leading discriminator bytes.
type InstructionLayout struct {
	Name          string
	Kind          domain.InstructionKind
	Discriminator []byte
	MinLen        int
	Args          []Field

	// PoolAccountIndex is the position of the pool account in the
	// instruction's account list, -1 when the instruction does not bind
	// one (aggregator routers).
	PoolAccountIndex int
}

func (l *InstructionLayout) validate(program string) error {
	if l.Name == "" {
		return fmt.Errorf("instruction layout for %s: unnamed", program)
	}
	if len(l.Discriminator) == 0 {
		return fmt.Errorf("instruction %s/%s: empty discriminator", program, l.Name)
	}
	if l.MinLen < len(l.Discriminator) {
		return fmt.Errorf("instruction %s/%s: MinLen %d shorter than discriminator",
			program, l.Name, l.MinLen)
	}
	seen := make(map[string]bool, len(l.Args))
	for _, f := range l.Args {
		if f.Name == "" {
			return fmt.Errorf("instruction %s/%s: unnamed arg at offset %d", program, l.Name, f.Offset)
		}
		if seen[f.Name] {
			return fmt.Errorf("instruction %s/%s: duplicate arg %s", program, l.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Offset < len(l.Discriminator) {
			return fmt.Errorf("instruction %s/%s: arg %s overlaps discriminator", program, l.Name, f.Name)
		}
		if f.end() > l.MinLen {
			return fmt.Errorf("instruction %s/%s: arg %s ends at %d past MinLen %d",
				program, l.Name, f.Name, f.end(), l.MinLen)
		}
	}
	return nil
}

package amm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"

	"solana-pool-monitor/internal/domain"
)

// DecodeAccount decodes a pool account buffer for the given protocol.
// Pure and allocation-only: the same input always yields the same record,
// and the returned snapshot is never mutated afterwards. Token reserves
// stay in raw integer units; decimal scaling is the caller's job.
func (r *Registry) DecodeAccount(p domain.Protocol, data []byte) (*domain.PoolAccount, error) {
	layout := r.accounts[p]
	if layout == nil {
		de := errUnknownProtocol(p.ProgramID())
		de.Protocol = p
		return nil, de
	}

	if len(data) < layout.MinLen {
		return nil, errBufferTooShort(p, firstUnreadable(layout.Fields, len(data)), layout.MinLen, len(data))
	}

	acct := &domain.PoolAccount{
		Protocol: p,
		Extra:    make(map[string]uint64),
	}

	for _, f := range layout.Fields {
		if f.Type == FieldPubkey {
			raw := data[f.Offset:f.end()]
			switch f.Name {
			case FieldTokenAMint:
				if isZero(raw) {
					return nil, errFieldOutOfRange(p, f.Name, "zero pubkey")
				}
				acct.TokenA.Mint = base58.Encode(raw)
			case FieldTokenBMint:
				if isZero(raw) {
					return nil, errFieldOutOfRange(p, f.Name, "zero pubkey")
				}
				acct.TokenB.Mint = base58.Encode(raw)
			}
			continue
		}

		if f.Type == FieldU128 {
			acct.Extra[f.Name+"_lo"] = binary.LittleEndian.Uint64(data[f.Offset:])
			acct.Extra[f.Name+"_hi"] = binary.LittleEndian.Uint64(data[f.Offset+8:])
			continue
		}

		val := readUint(data, f)
		if f.Max > 0 && val > f.Max {
			return nil, errFieldOutOfRange(p, f.Name, fmt.Sprintf("value %d exceeds max %d", val, f.Max))
		}
		if f.NonZero && val == 0 {
			return nil, errFieldOutOfRange(p, f.Name, "must be non-zero")
		}

		switch f.Name {
		case FieldReserveA:
			acct.TokenA.Reserve = val
		case FieldReserveB:
			acct.TokenB.Reserve = val
		case FieldDecimalsA:
			acct.TokenA.Decimals = uint8(val)
		case FieldDecimalsB:
			acct.TokenB.Decimals = uint8(val)
		case FieldFeeNumerator:
			acct.FeeNumerator = val
		case FieldFeeDenominator:
			acct.FeeDenominator = val
		default:
			acct.Extra[f.Name] = val
		}
	}

	if acct.FeeDenominator == 0 && layout.ImplicitFeeDenominator > 0 {
		acct.FeeDenominator = layout.ImplicitFeeDenominator
	}

	return acct, nil
}

// DecodeInstruction decodes one instruction payload for a program. A
// registered program whose discriminator is unrecognized yields an
// instruction of kind InstructionOther rather than an error, since AMM
// programs carry many administrative variants this pipeline ignores.
func (r *Registry) DecodeInstruction(programID string, data []byte, accounts []domain.AccountRef) (*domain.Instruction, error) {
	layouts := r.instructions[programID]
	if layouts == nil {
		return nil, errUnknownProtocol(programID)
	}

	protocol := domain.ResolveProtocol(programID)

	if len(data) == 0 {
		return nil, errBufferTooShort(protocol, "discriminator", 1, 0)
	}

	var layout *InstructionLayout
	for i := range layouts {
		if bytes.HasPrefix(data, layouts[i].Discriminator) {
			layout = &layouts[i]
			break
		}
	}

	if layout == nil {
		return &domain.Instruction{
			ProgramID: programID,
			Protocol:  protocol,
			Name:      "unknown",
			Kind:      domain.InstructionOther,
			Args:      make(map[string]uint64),
			Accounts:  accounts,
		}, nil
	}

	if len(data) < layout.MinLen {
		return nil, errBufferTooShort(protocol, firstUnreadable(layout.Args, len(data)), layout.MinLen, len(data))
	}

	args := make(map[string]uint64, len(layout.Args))
	for _, f := range layout.Args {
		if f.Type == FieldU128 {
			args[f.Name+"_lo"] = binary.LittleEndian.Uint64(data[f.Offset:])
			args[f.Name+"_hi"] = binary.LittleEndian.Uint64(data[f.Offset+8:])
			continue
		}
		val := readUint(data, f)
		if f.Max > 0 && val > f.Max {
			return nil, errFieldOutOfRange(protocol, f.Name, fmt.Sprintf("value %d exceeds max %d", val, f.Max))
		}
		args[f.Name] = val
	}

	instr := &domain.Instruction{
		ProgramID: programID,
		Protocol:  protocol,
		Name:      layout.Name,
		Kind:      layout.Kind,
		Args:      args,
		Accounts:  accounts,
	}

	if layout.PoolAccountIndex >= 0 && layout.PoolAccountIndex < len(accounts) {
		instr.PoolAddress = accounts[layout.PoolAccountIndex].Pubkey
	}

	return instr, nil
}

// EncodeAccount renders a PoolAccount back into its protocol's byte
// layout. Inverse of DecodeAccount for every field the layout declares;
// undeclared bytes are zero.
func (r *Registry) EncodeAccount(acct *domain.PoolAccount) ([]byte, error) {
	layout := r.accounts[acct.Protocol]
	if layout == nil {
		return nil, fmt.Errorf("no account layout for %s", acct.Protocol)
	}

	buf := make([]byte, layout.MinLen)

	for _, f := range layout.Fields {
		if f.Type == FieldPubkey {
			var mint string
			switch f.Name {
			case FieldTokenAMint:
				mint = acct.TokenA.Mint
			case FieldTokenBMint:
				mint = acct.TokenB.Mint
			default:
				continue
			}
			raw, err := base58.Decode(mint)
			if err != nil {
				return nil, fmt.Errorf("field %s: decode pubkey %q: %w", f.Name, mint, err)
			}
			if len(raw) != 32 {
				return nil, fmt.Errorf("field %s: pubkey %q is %d bytes", f.Name, mint, len(raw))
			}
			copy(buf[f.Offset:], raw)
			continue
		}

		if f.Type == FieldU128 {
			binary.LittleEndian.PutUint64(buf[f.Offset:], acct.Extra[f.Name+"_lo"])
			binary.LittleEndian.PutUint64(buf[f.Offset+8:], acct.Extra[f.Name+"_hi"])
			continue
		}

		var val uint64
		switch f.Name {
		case FieldReserveA:
			val = acct.TokenA.Reserve
		case FieldReserveB:
			val = acct.TokenB.Reserve
		case FieldDecimalsA:
			val = uint64(acct.TokenA.Decimals)
		case FieldDecimalsB:
			val = uint64(acct.TokenB.Decimals)
		case FieldFeeNumerator:
			val = acct.FeeNumerator
		case FieldFeeDenominator:
			val = acct.FeeDenominator
		default:
			val = acct.Extra[f.Name]
		}
		writeUint(buf, f, val)
	}

	return buf, nil
}

// readUint reads a little-endian integer field of width 1, 2, 4 or 8.
func readUint(data []byte, f Field) uint64 {
	switch f.Type {
	case FieldU8:
		return uint64(data[f.Offset])
	case FieldU16:
		return uint64(binary.LittleEndian.Uint16(data[f.Offset:]))
	case FieldU32:
		return uint64(binary.LittleEndian.Uint32(data[f.Offset:]))
	case FieldU64:
		return binary.LittleEndian.Uint64(data[f.Offset:])
	default:
		return 0
	}
}

func writeUint(buf []byte, f Field, val uint64) {
	switch f.Type {
	case FieldU8:
		buf[f.Offset] = byte(val)
	case FieldU16:
		binary.LittleEndian.PutUint16(buf[f.Offset:], uint16(val))
	case FieldU32:
		binary.LittleEndian.PutUint32(buf[f.Offset:], uint32(val))
	case FieldU64:
		binary.LittleEndian.PutUint64(buf[f.Offset:], val)
	}
}

// firstUnreadable names the first field, in offset order, whose bytes
// extend past the buffer. Falls back to the last field when every field
// fits but the declared minimum length does not.
func firstUnreadable(fields []Field, have int) string {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for _, f := range sorted {
		if f.end() > have {
			return f.Name
		}
	}
	if len(sorted) > 0 {
		return sorted[len(sorted)-1].Name
	}
	return ""
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

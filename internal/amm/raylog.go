package amm

import (
	"encoding/base64"
	"encoding/binary"
	"regexp"

	"github.com/mr-tron/base58"
)

// Raydium emits a base64 "ray_log" line per instruction. It carries the
// pool, mints and raw amounts, which the normalizer uses to enrich
// events and classify routes.
var rayLogPattern = regexp.MustCompile(`ray_log: ([A-Za-z0-9+/=]+)`)

// RayLogKind classifies a decoded ray_log entry.
type RayLogKind int

const (
	RayLogOther RayLogKind = iota
	RayLogSwap
	RayLogDeposit
	RayLogWithdraw
)

// RayLog is one decoded ray_log entry. Amounts are raw integer units.
type RayLog struct {
	Kind       RayLogKind
	Pool       string
	InputMint  string
	OutputMint string
	AmountIn   uint64
	AmountOut  uint64
}

// ParseRayLog extracts and decodes a ray_log entry from one log line.
// Returns (nil, false) when the line carries none.
//
// Swap layout: discriminator(1) + ammId(32) + inputMint(32) +
// outputMint(32) + amountIn(8) + amountOut(8). Liquidity layout:
// discriminator(1) + amountToken(8) + amountQuote(8).
func ParseRayLog(line string) (*RayLog, bool) {
	matches := rayLogPattern.FindStringSubmatch(line)
	if matches == nil {
		return nil, false
	}

	data, err := base64.StdEncoding.DecodeString(matches[1])
	if err != nil || len(data) < 1 {
		return nil, false
	}

	switch data[0] {
	// 0x09 = SwapBaseIn, 0x0b = SwapBaseOut, 0x0d/0x0e = newer variants
	case 0x09, 0x0b, 0x0d, 0x0e:
		rl := &RayLog{Kind: RayLogSwap}
		if len(data) >= 97 {
			rl.Pool = base58.Encode(data[1:33])
			rl.InputMint = base58.Encode(data[33:65])
			rl.OutputMint = base58.Encode(data[65:97])
		}
		if len(data) >= 113 {
			rl.AmountIn = binary.LittleEndian.Uint64(data[97:])
			rl.AmountOut = binary.LittleEndian.Uint64(data[105:])
		}
		return rl, true

	case 0x03, 0x04:
		kind := RayLogDeposit
		if data[0] == 0x04 {
			kind = RayLogWithdraw
		}
		rl := &RayLog{Kind: kind}
		if len(data) >= 17 {
			rl.AmountIn = binary.LittleEndian.Uint64(data[1:])
			rl.AmountOut = binary.LittleEndian.Uint64(data[9:])
		}
		return rl, true

	default:
		return &RayLog{Kind: RayLogOther}, true
	}
}

// Package main decodes a single pool account and prints its fields.
// Useful for checking a layout against a live account before pointing
// the monitor at it.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"github.com/mr-tron/base58"

	"solana-pool-monitor/internal/amm"
	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/solana"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	pool := flag.String("pool", "", "Pool account address to fetch and decode")
	data := flag.String("data", "", "Base64 account data to decode instead of fetching")
	protocolName := flag.String("protocol", "", "Protocol for --data: raydium, orca, jupiter_v2 or jupiter_v6")

	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", log.LstdFlags)

	registry := amm.DefaultRegistry()

	var (
		raw      []byte
		protocol domain.Protocol
		slot     int64
	)

	switch {
	case *data != "":
		protocol = domain.ParseProtocol(*protocolName)
		if protocol == domain.ProtocolUnknown {
			logger.Fatalf("--protocol is required with --data (got %q)", *protocolName)
		}
		decoded, err := base64.StdEncoding.DecodeString(*data)
		if err != nil {
			logger.Fatalf("decode --data: %v", err)
		}
		raw = decoded

	case *pool != "":
		if *rpcEndpoint == "" {
			logger.Fatal("--rpc-endpoint is required with --pool")
		}
		if !solana.ValidAddress(*pool) {
			logger.Fatalf("--pool %q is not a valid Solana address", *pool)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		rpc := solana.NewHTTPClient(*rpcEndpoint)
		info, err := rpc.GetAccountInfo(ctx, *pool)
		if err != nil {
			logger.Fatalf("fetch account: %v", err)
		}
		if info == nil {
			logger.Fatalf("account %s not found", *pool)
		}
		raw = info.Data
		slot = info.Slot
		protocol = domain.ResolveProtocol(info.Owner)
		if protocol == domain.ProtocolUnknown {
			logger.Fatalf("unrecognized owner program %s", info.Owner)
		}

	default:
		logger.Fatal("either --pool or --data is required")
	}

	acct, err := registry.DecodeAccount(protocol, raw)
	if err != nil {
		logger.Fatalf("decode account: %v", err)
	}

	fmt.Printf("protocol:  %s\n", acct.Protocol)
	if slot > 0 {
		fmt.Printf("slot:      %d\n", slot)
	}
	fmt.Printf("token A:   %s%s reserve=%d decimals=%d\n", acct.TokenA.Mint, mintSuffix(acct.TokenA.Mint), acct.TokenA.Reserve, acct.TokenA.Decimals)
	fmt.Printf("token B:   %s%s reserve=%d decimals=%d\n", acct.TokenB.Mint, mintSuffix(acct.TokenB.Mint), acct.TokenB.Reserve, acct.TokenB.Decimals)
	if acct.FeeDenominator > 0 {
		fmt.Printf("fee:       %d/%d (%.4f%%)\n", acct.FeeNumerator, acct.FeeDenominator,
			float64(acct.FeeNumerator)/float64(acct.FeeDenominator)*100)
	}
	if price := spotPrice(acct); price > 0 {
		fmt.Printf("price:     %.9f\n", price)
	}
	if auth := poolAuthority(acct.Protocol); auth != "" {
		fmt.Printf("authority: %s\n", auth)
	}

	if len(acct.Extra) > 0 {
		keys := make([]string, 0, len(acct.Extra))
		for k := range acct.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("extra:     %s=%d\n", k, acct.Extra[k])
		}
	}
}

// poolAuthority derives the program authority that signs vault moves
// for protocols with a global authority PDA. Raydium derives it from
// the fixed "amm authority" seed; the others keep per-pool authorities
// this tool cannot derive from the account alone.
func poolAuthority(p domain.Protocol) string {
	if p != domain.ProtocolRaydium {
		return ""
	}
	programID, err := base58.Decode(p.ProgramID())
	if err != nil {
		return ""
	}
	return solana.DerivePDA([][]byte{[]byte("amm authority")}, programID)
}

// mintSuffix marks mints whose address is off the ed25519 curve, which
// means the mint is program derived rather than keypair created.
func mintSuffix(mint string) string {
	raw, err := base58.Decode(mint)
	if err != nil || len(raw) != 32 {
		return " (malformed)"
	}
	if !solana.IsOnCurve(raw) {
		return " (pda)"
	}
	return ""
}

// spotPrice mirrors the tracker's price derivation so the tool prints
// what the monitor would track.
func spotPrice(acct *domain.PoolAccount) float64 {
	if den, ok := acct.Extra["price_den"]; ok && den > 0 {
		return float64(acct.Extra["price_num"]) / float64(den)
	}
	if lo, ok := acct.Extra["sqrt_price_lo"]; ok {
		sqrtPrice := float64(lo) + float64(acct.Extra["sqrt_price_hi"])*math.Exp2(64)
		ratio := sqrtPrice / math.Exp2(64)
		return ratio * ratio
	}
	if acct.TokenA.Reserve == 0 || acct.TokenB.Reserve == 0 {
		return 0
	}
	scaledA := float64(acct.TokenA.Reserve) / math.Pow(10, float64(acct.TokenA.Decimals))
	scaledB := float64(acct.TokenB.Reserve) / math.Pow(10, float64(acct.TokenB.Decimals))
	return scaledB / scaledA
}

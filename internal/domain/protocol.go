package domain

// Protocol identifies the AMM program that owns a pool account or emitted
// an instruction. The set is closed: adding a protocol means adding a
// variant here plus a layout entry in the amm registry, nothing else.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolJupiterV2
	ProtocolJupiterV6
	ProtocolOrca
	ProtocolRaydium
)

// On-chain program addresses for the supported AMMs.
const (
	// JupiterV2Program is the Jupiter v2 pool program ID.
	JupiterV2Program = "JUP2jxvXaqu7NQY1GmNF4m1vodw12LVXYxbFL2uJvfo"
	// JupiterV6Program is the Jupiter v6 aggregator (router) program ID.
	JupiterV6Program = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	// OrcaWhirlpoolProgram is the Orca Whirlpool program ID.
	OrcaWhirlpoolProgram = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// RaydiumAMMV4Program is the Raydium AMM v4 program ID.
	RaydiumAMMV4Program = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// WSOL is the Wrapped SOL mint address.
const WSOL = "So11111111111111111111111111111111111111112"

// ResolveProtocol maps an on-chain program address to its Protocol.
// Unrecognized programs resolve to ProtocolUnknown; callers must treat
// that as "no data", never as an empty-but-valid record.
func ResolveProtocol(programID string) Protocol {
	switch programID {
	case JupiterV2Program:
		return ProtocolJupiterV2
	case JupiterV6Program:
		return ProtocolJupiterV6
	case OrcaWhirlpoolProgram:
		return ProtocolOrca
	case RaydiumAMMV4Program:
		return ProtocolRaydium
	default:
		return ProtocolUnknown
	}
}

// ProgramID returns the on-chain program address for a protocol, or ""
// for ProtocolUnknown.
func (p Protocol) ProgramID() string {
	switch p {
	case ProtocolJupiterV2:
		return JupiterV2Program
	case ProtocolJupiterV6:
		return JupiterV6Program
	case ProtocolOrca:
		return OrcaWhirlpoolProgram
	case ProtocolRaydium:
		return RaydiumAMMV4Program
	default:
		return ""
	}
}

// ParseProtocol is the inverse of String, used when reading persisted
// records back. Unrecognized names parse to ProtocolUnknown.
func ParseProtocol(s string) Protocol {
	switch s {
	case "jupiter_v2":
		return ProtocolJupiterV2
	case "jupiter_v6":
		return ProtocolJupiterV6
	case "orca":
		return ProtocolOrca
	case "raydium":
		return ProtocolRaydium
	default:
		return ProtocolUnknown
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolJupiterV2:
		return "jupiter_v2"
	case ProtocolJupiterV6:
		return "jupiter_v6"
	case ProtocolOrca:
		return "orca"
	case ProtocolRaydium:
		return "raydium"
	default:
		return "unknown"
	}
}

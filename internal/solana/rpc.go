package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface consumed by the
// monitor. All calls are fallible and latency-bearing; no ordering or
// delivery guarantees are assumed beyond eventual consistency.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns (nil, nil) when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address,
	// newest first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetAccountInfo retrieves raw account data by public key.
	// Returns (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the estimated production time of a block.
	// Returns (nil, nil) when the node has no timestamp for the slot.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// AccountInfo is a Solana account snapshot with decoded data bytes.
type AccountInfo struct {
	// Slot is the slot the account state was observed at, from the RPC
	// response context.
	Slot       int64
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// Transaction represents a Solana transaction with the metadata the
// normalizer needs: token balance snapshots, compiled instructions and
// inner instruction sets.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // unix seconds
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains execution metadata.
type TransactionMeta struct {
	Err               interface{} // nil on success
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	InnerInstructions []InnerInstructionSet
}

// Failed reports whether the chain recorded this transaction as failed.
func (m *TransactionMeta) Failed() bool {
	return m != nil && m.Err != nil
}

// TokenBalance is one pre/post token balance entry.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
	Decimals     uint8
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction is one instruction as compiled into the message.
// Data is base58-encoded, as delivered by the RPC json encoding.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// InnerInstructionSet holds the inner instructions spawned by the outer
// instruction at Index.
type InnerInstructionSet struct {
	Index        int
	Instructions []CompiledInstruction
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for
// getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // start searching backwards from this signature
	Until  string // search until this signature
	Limit  int    // maximum number of signatures to return
}

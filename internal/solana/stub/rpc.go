package stub

import (
	"context"
	"sync"

	"solana-pool-monitor/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. Safe for
// concurrent use so monitor tests can mutate state mid-run.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	accounts     map[string]*solana.AccountInfo
	signatures   map[string][]solana.SignatureInfo
	slot         int64
	blockTimes   map[int64]int64

	// errs injects an error for a pubkey or signature, consumed on
	// first use unless Sticky is set.
	errs map[string]*injectedErr

	// call counters by method name
	calls map[string]int
}

type injectedErr struct {
	err    error
	sticky bool
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
		accounts:     make(map[string]*solana.AccountInfo),
		signatures:   make(map[string][]solana.SignatureInfo),
		blockTimes:   make(map[int64]int64),
		errs:         make(map[string]*injectedErr),
		calls:        make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
// Returns (nil, nil) when not found, matching the HTTP client.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getTransaction"]++

	if err := c.takeErr(signature); err != nil {
		return nil, err
	}
	return c.transactions[signature], nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getSignaturesForAddress"]++

	if err := c.takeErr(address); err != nil {
		return nil, err
	}

	sigs := c.signatures[address]

	// Honor the until cursor: entries at or past the cursor are excluded
	if opts != nil && opts.Until != "" {
		for i, s := range sigs {
			if s.Signature == opts.Until {
				sigs = sigs[:i]
				break
			}
		}
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// GetAccountInfo retrieves account info from the stub store.
// Returns (nil, nil) when absent, matching the HTTP client.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getAccountInfo"]++

	if err := c.takeErr(pubkey); err != nil {
		return nil, err
	}
	return c.accounts[pubkey], nil
}

// GetSlot returns the scripted current slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getSlot"]++

	if err := c.takeErr("getSlot"); err != nil {
		return 0, err
	}
	return c.slot, nil
}

// GetBlockTime returns the scripted block time for a slot. Returns
// (nil, nil) when none was set, matching the HTTP client.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getBlockTime"]++

	if err := c.takeErr("getBlockTime"); err != nil {
		return nil, err
	}
	bt, ok := c.blockTimes[slot]
	if !ok {
		return nil, nil
	}
	return &bt, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// SetAccount sets account info for a pubkey.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pubkey] = info
}

// SetSlot sets the current slot GetSlot reports.
func (c *RPCClient) SetSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
}

// SetBlockTime sets the block time GetBlockTime reports for a slot.
func (c *RPCClient) SetBlockTime(slot, blockTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockTimes[slot] = blockTime
}

// AddSignatures adds signatures for an address, newest first.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = sigs
}

// FailNext injects a one-shot error for the given key (pubkey,
// signature or address).
func (c *RPCClient) FailNext(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[key] = &injectedErr{err: err}
}

// FailAlways injects a persistent error for the given key until
// ClearErr is called.
func (c *RPCClient) FailAlways(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[key] = &injectedErr{err: err, sticky: true}
}

// ClearErr removes any injected error for the key.
func (c *RPCClient) ClearErr(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errs, key)
}

// Calls returns how many times the named RPC method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// takeErr must be called with mu held.
func (c *RPCClient) takeErr(key string) error {
	ie, ok := c.errs[key]
	if !ok {
		return nil
	}
	if !ie.sticky {
		delete(c.errs, key)
	}
	return ie.err
}

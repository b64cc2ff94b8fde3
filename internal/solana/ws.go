package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to transaction logs matching the filter.
	// Returns a channel that receives notifications until Close.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// SubscribeAccount subscribes to state changes of a single account.
	// Returns a channel that receives notifications until Close.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close closes the connection and all subscription channels.
	Close() error
}

// LogsFilter defines filter criteria for log subscriptions.
type LogsFilter struct {
	// Mentions filters logs mentioning these addresses.
	Mentions []string
}

// LogNotification is a log event from the WebSocket stream.
type LogNotification struct {
	Slot      int64
	Signature string
	Logs      []string
	Err       interface{} // nil on success
}

// AccountNotification is an account state change from the WebSocket stream.
type AccountNotification struct {
	Slot     int64
	Pubkey   string
	Lamports uint64
	Owner    string
	Data     []byte
}

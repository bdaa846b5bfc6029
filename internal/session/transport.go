package session

import "context"

// Result of polling a non-blocking transport operation.
type Result uint8

const (
	Pending Result = iota // not complete, poll again next tick
	OK
)

// Transport is the external network collaborator. All methods are
// non-blocking in contract: they start work on first call and report
// progress when polled again. An error return completes the operation.
type Transport interface {
	Connect(ctx context.Context) (Result, error)
	// Send accepts a payload owned by the caller only for the duration
	// of the call; implementations copy what they keep.
	Send(ctx context.Context, payload []byte) (Result, error)
	// Receive returns one inbound message or nil.
	Receive() []byte
	Close() error
}

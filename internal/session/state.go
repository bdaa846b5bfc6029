// Package session owns the network connection lifecycle: the
// Disconnected/Connecting/Connected/Recovering state machine, retry
// backoff and transport error classification. It is driven by
// scheduler ticks and never blocks.
package session

type State uint32

const (
	StateDisconnected State = iota // no resources held
	StateConnecting                // non-blocking connect in progress
	StateConnected                 // telemetry may flow
	StateRecovering                // backoff before next connect
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateRecovering:
		return "Recovering"
	}
	return "invalid"
}

func (s State) Online() bool { return s == StateConnected }

package realtime

import "encoding/json"

// Event is one decoded realtime event delivered to topic listeners.
type Event struct {
	// ID is the SSE frame id (may be empty).
	ID string
	// Topic is the subscription topic the event was published to.
	Topic string
	// Payload is the structured event body. Unparsable wire data arrives
	// wrapped as {"raw": <text>}.
	Payload json.RawMessage
}

// Listener receives events for a subscribed topic. Listeners run on the
// transport's reader goroutine; they may call back into the Service but
// should not block for long, since delivery of subsequent events waits for
// them.
type Listener func(e Event)

// UnsubscribeFunc removes the registration it was returned for. Calling it
// more than once is a no-op. The error is a resubmission failure, if any.
type UnsubscribeFunc func() error

// State is the connection state of a transport.
type State int32

const (
	// StateDisconnected means no live connection is held.
	StateDisconnected State = iota
	// StateConnecting means the background loop is establishing a connection.
	StateConnecting
	// StateConnected means the connection is live and events flow.
	StateConnected
	// StateClosing means an explicit shutdown is in progress.
	StateClosing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// connectEvent is the name of the protocol control frame carrying the
// connection's clientId. It is never delivered to application listeners.
const connectEvent = "PB_CONNECT"

type connectPayload struct {
	ClientID string `json:"clientId"`
}

// submitPayload is the body of the subscription confirmation POST.
type submitPayload struct {
	ClientID      string   `json:"clientId"`
	Subscriptions []string `json:"subscriptions"`
}

package pubsub

import "encoding/json"

// Message is one pubsub message. Inbound messages carry the broker-assigned
// ID and Created timestamp; the local echo returned by Publish carries only
// the topic and data.
type Message struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Created string          `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// Listener receives messages for a subscribed topic. Listeners run on the
// socket's reader goroutine; they may call back into the Service but should
// not block for long.
type Listener func(m Message)

// UnsubscribeFunc removes the registration it was returned for. Calling it
// more than once is a no-op.
type UnsubscribeFunc func() error

// envelope is the JSON wrapper for outgoing frames. Inbound messages are
// bare Message objects with no envelope.
type envelope struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	envelopePublish     = "publish"
	envelopeSubscribe   = "subscribe"
	envelopeUnsubscribe = "unsubscribe"
)

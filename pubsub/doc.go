// Package pubsub implements the WebSocket publish/subscribe transport.
//
// A Service holds one persistent socket against the pubsub endpoint. There
// is no handshake identity: a successfully opened socket is itself the ready
// signal. Topic interest is pushed per event (a subscribe envelope when a
// topic gains its first listener, an unsubscribe envelope when it loses its
// last one) rather than batch-confirmed.
//
// The socket reconnects automatically after any non-manual close, with a
// fixed delay, for as long as listeners remain registered.
//
//	svc := pubsub.New(c, pubsub.Config{})
//	unsubscribe, err := svc.Subscribe(ctx, "chat", func(m pubsub.Message) {
//	    ...
//	})
//	_, err = svc.Publish(ctx, "chat", map[string]string{"text": "hi"})
package pubsub

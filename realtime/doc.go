// Package realtime implements the SSE-based realtime subscription transport.
//
// A Service owns one background goroutine holding a streaming GET against
// the realtime endpoint. Application listeners for many topics are
// multiplexed over that single stream: the server identifies the connection
// with a clientId delivered in a PB_CONNECT control frame, and the service
// confirms the full set of active topics with an idempotent POST after every
// (re)connect and after every change to the set.
//
// The stream reconnects automatically after any non-manual termination, with
// a fixed backoff, until Disconnect is called.
//
//	svc := realtime.New(c, realtime.Config{})
//	unsubscribe, err := svc.Subscribe(ctx, "posts", func(e realtime.Event) {
//	    ...
//	})
//	defer svc.Disconnect()
package realtime

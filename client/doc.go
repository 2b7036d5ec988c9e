// Package client provides the authenticated HTTP layer the realtime
// transports are built on: request/response execution with typed error
// classification, streaming GET support, URL construction, and bearer token
// injection from an auth.Store.
//
// The realtime and pubsub packages consume this client; they never build or
// interpret HTTP requests themselves.
//
//	c, err := client.New(client.Config{BaseURL: "https://api.example.com"},
//	    client.WithAuth(store))
//
//	resp, err := c.Do(ctx, client.Request{
//	    Method: http.MethodPost,
//	    Path:   "/api/realtime",
//	    Body:   payload,
//	})
package client

// Package auth holds the client's authentication state: the current bearer
// token, the authenticated record, and a best-effort change-listener list.
//
// Both realtime transports re-read the token from the store on every
// (re)connect attempt, so a rotated token takes effect at the next
// connection without reconstructing the transport.
package auth

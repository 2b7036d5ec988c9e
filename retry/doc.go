// Package retry implements bounded retry with exponential backoff and
// jitter. The client package uses it for idempotent request retries; the
// transports do not — their reconnect loops use a fixed delay by protocol
// design.
package retry

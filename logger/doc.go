// Package logger provides structured logging for the realtime client kit,
// built on zerolog. Components obtain a tagged logger via WithComponent so
// transport-level noise (reconnects, resubmissions) stays filterable.
package logger

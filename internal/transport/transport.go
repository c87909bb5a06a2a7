// SPDX-License-Identifier: MIT

// Package transport delivers metric snapshots to external consumers.
package transport

// Transport sends processed results or events to some sink.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

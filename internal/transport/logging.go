// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"timegrapher/internal/log"
)

// LoggingTransport writes each snapshot to the debug log. Useful for
// headless runs and as a fallback when no network transport is enabled.
type LoggingTransport struct{}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs the data as JSON. Never fails; marshal errors are logged
// and swallowed so the publisher keeps running.
func (lt *LoggingTransport) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warnf("Transport: cannot marshal %T: %v", data, err)
		return nil
	}
	log.Debugf("Transport: %s", payload)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)

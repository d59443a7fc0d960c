// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	applog "pitchmidi/internal/log"
)

// LoggingTransport implements the Transport interface by logging a short
// description of each payload at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the payload size and type.
func (lt *LoggingTransport) Send(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		// Logging transport never fails to "send"
		applog.Warnf("Transport: Unable to marshal %T: %v", data, err)
		return nil
	}
	applog.Debugf("Transport: %T (%d bytes)", data, len(raw))
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

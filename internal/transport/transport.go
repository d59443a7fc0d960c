// SPDX-License-Identifier: MIT
package transport

// Transport publishes transcription results to downstream consumers such as
// a visualiser. Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Package clients provides the resilient HTTP client used to reach the
// remote quote source.
package clients

import "errors"

// Infrastructure failures of the client. The ACL translates them into domain
// errors; nothing above the adapters should see them.
var (
	// ErrCircuitOpen is returned without contacting the remote while the
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used up.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Package acl is the anti-corruption layer between the remote quote resource
// and the domain.
//
// Remote DTOs never leave this package. Every failure is translated into a
// domain error before it is returned:
//   - 404 Not Found → [domain.ErrNotFound]
//   - 409 Conflict → [domain.ErrConflict]
//   - 400/422 → [domain.ErrValidation]
//   - 401/403, 429, 5xx and transport failures → [domain.ErrUnavailable]
//
// Client-level errors ([clients.ErrCircuitOpen], [clients.ErrMaxRetriesExceeded])
// are reported as [domain.ErrUnavailable] with the failed operation as context.
package acl

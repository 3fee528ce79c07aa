// Package domain defines the core domain models for shopmate.
//
// Domain models are pure value objects without IO dependencies:
//
//   - Session keys: volatile and shadow key naming for the cache layer
//   - Payload: the weak contract over the opaque conversation blob
//   - DurableRecord: the archived form of an expired session
//   - Errors: structured domain errors with stable codes
package domain

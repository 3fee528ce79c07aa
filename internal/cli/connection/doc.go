// Package connection is the HTTP client shopmate-cli uses to talk to
// shopmate-server.
//
// Responses arrive in the server's JSON envelope; ParseResponse unwraps
// the data field on success and turns error envelopes into *APIError.
package connection

// Package handler provides the HTTP request handlers for shopmate.
//
// Session routes expose the dual-key session store, archive routes read
// the durable store, and admin routes inspect the persistence worker and
// trigger the orphan sweeper. Every JSON response uses the Response
// envelope.
package handler

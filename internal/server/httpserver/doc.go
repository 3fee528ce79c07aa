// Package httpserver provides the HTTP server for shopmate.
//
// It uses net/http with Go 1.22 method patterns. The router mounts the
// handlers from the handler subpackage plus the Prometheus /metrics
// endpoint, behind request ID, panic recovery and access log middleware.
package httpserver

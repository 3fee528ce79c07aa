// Package tlsroots builds the TLS configurations shopmate uses on both
// sides of a connection.
//
// ClientConfig produces the client side for the Redis and MongoDB
// connections: system roots plus an optional private CA bundle.
// CertReloader serves the HTTP listener's key pair and swaps it in place
// when the files on disk are rotated.
package tlsroots

package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned when a CA bundle holds no certificates.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// ClientOptions describes how to trust a server.
type ClientOptions struct {
	// CAFile is a PEM bundle appended to the system roots.
	CAFile string
	// ServerName overrides the name checked against the certificate.
	ServerName string
	// InsecureSkipVerify disables verification. Test setups only.
	InsecureSkipVerify bool
}

// ClientConfig returns a client TLS config for opts.
func ClientConfig(opts ClientOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in via config
		MinVersion:         tls.VersionTLS12,
	}
	if opts.CAFile == "" {
		return cfg, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	data, err := os.ReadFile(opts.CAFile)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read ca file %s: %w", opts.CAFile, err)
	}
	if err := appendPEM(pool, data); err != nil {
		return nil, fmt.Errorf("tlsroots: %s: %w", opts.CAFile, err)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// appendPEM adds every CERTIFICATE block in data to pool. Other block
// types are skipped.
func appendPEM(pool *x509.CertPool, data []byte) error {
	added := 0
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

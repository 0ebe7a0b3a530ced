// Package tlsutil builds the *tls.Config the server listens with, either
// from a manually supplied certificate/key pair or, additively, from an
// ACME autocert manager.
package tlsutil

import (
	"crypto/tls"
	"fmt"

	"golang.org/x/crypto/acme/autocert"
)

// alpnProtocols is offered in this order regardless of which TLS source
// is used.
var alpnProtocols = []string{"h2", "http/1.1", "http/1.0"}

// FromCertificate loads a manually supplied certificate/key pair.
func FromCertificate(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   alpnProtocols,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// FromAutocert returns a *tls.Config backed by ACME, obtaining and
// renewing certificates for domain on demand, caching them under
// cacheDir.
func FromAutocert(domain, cacheDir string) *tls.Config {
	mgr := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domain),
		Cache:      autocert.DirCache(cacheDir),
	}
	cfg := mgr.TLSConfig()
	cfg.NextProtos = alpnProtocols
	return cfg
}

package streamecho

import (
	"crypto/tls"
	"errors"

	"github.com/indigo-web/streamecho/internal/address"
	"github.com/indigo-web/streamecho/transport"
)

var (
	ErrBadCertificate = errors.New("one or more passed certificates are empty")
	ErrNoCertificates = errors.New("no certificates were passed")
)

// Transport describes how connections are accepted and served. The underlying
// transport is constructed only on Serve, so errors occurred in constructors, like
// a missing certificate, are reported from there.
type Transport struct {
	build func(addr string, logger Logger) (transport.Transport, error)
}

// TCP serves every connection in a separate goroutine.
func TCP() Transport {
	return Transport{
		build: func(string, Logger) (transport.Transport, error) {
			return transport.NewTCP(), nil
		},
	}
}

// EventLoop serves connections on an event loop. By default, a single one is used for
// all the connections, see config.NET.Multicore.
func EventLoop() Transport {
	return Transport{
		build: func(string, Logger) (transport.Transport, error) {
			return transport.NewEventLoop(), nil
		},
	}
}

// TLS loads the certificate from the files.
func TLS(cert, key string) Transport {
	return Transport{
		build: func(string, Logger) (transport.Transport, error) {
			c, err := tls.LoadX509KeyPair(cert, key)
			if err != nil {
				return nil, err
			}

			return transport.NewTLS([]tls.Certificate{c}), nil
		},
	}
}

// HTTPS serves TLS connections with the given certificates. Use Cert to load them.
func HTTPS(certs ...tls.Certificate) Transport {
	return Transport{
		build: func(string, Logger) (transport.Transport, error) {
			// simple anti-idiot checks in order to avoid the most obvious mistakes
			switch {
			case len(certs) == 0:
				return nil, ErrNoCertificates
			case !noEmptyCerts(certs):
				return nil, ErrBadCertificate
			}

			return transport.NewTLS(certs), nil
		},
	}
}

// AutoHTTPS obtains certificates for the domains via ACME. Listening on a loopback
// address, a self-signed certificate is generated instead.
func AutoHTTPS(domains ...string) Transport {
	return Transport{
		build: func(addr string, logger Logger) (transport.Transport, error) {
			if address.IsLoopback(addr) {
				cert, key, err := generateSelfSignedCert()
				if err != nil {
					return nil, err
				}

				return TLS(cert, key).build(addr, logger)
			}

			return transport.NewAutoTLS(newCertManager(logger, domains...)), nil
		},
	}
}

// Cert loads the certificate. In case of an error an empty certificate is returned,
// which is reported by HTTPS on Serve.
func Cert(cert, key string) tls.Certificate {
	c, _ := tls.LoadX509KeyPair(cert, key)
	return c
}

func noEmptyCerts(certs []tls.Certificate) bool {
	for _, c := range certs {
		if c.Certificate == nil {
			return false
		}
	}

	return true
}

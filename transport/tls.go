package transport

import (
	"crypto/tls"
	"net"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// TLS is TCP with every connection wrapped into a TLS server. The handshake happens
// lazily, on the first read.
type TLS struct {
	cfg *tls.Config
	TCP
}

func NewTLS(certs []tls.Certificate) *TLS {
	return &TLS{cfg: &tls.Config{
		Certificates: certs,
	}}
}

// NewAutoTLS obtains certificates on the fly via ACME, as the manager is configured to.
func NewAutoTLS(m *autocert.Manager) *TLS {
	return &TLS{cfg: &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"http/1.1", acme.ALPNProto},
	}}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	t.TCP = newTCP(tlsAdapter{tcp, tls.NewListener(tcp, t.cfg)})

	return nil
}

type tlsAdapter struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}

package transport

import (
	"net"

	"github.com/indigo-web/streamecho/config"
)

// Conn is the write side of a connection, as seen by a session.
type Conn interface {
	Write([]byte) (int, error)
	Close() error
	RemoteAddr() net.Addr
}

// Session consumes everything read from a single connection. It's created on accept
// and lives exactly as long as the connection does.
type Session interface {
	// Feed passes the freshly read data. Returned error means the connection must be
	// closed, and no more data must be fed.
	Feed(data []byte) error
	// Done reports whether the session isn't interested in the connection anymore.
	Done() bool
	// Close releases the session. Must be called exactly once per session, regardless
	// of how the connection ended.
	Close()
}

type Handler interface {
	Spawn(conn Conn) Session
}

type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, h Handler) error
	Stop()
	Close()
	Wait()
}

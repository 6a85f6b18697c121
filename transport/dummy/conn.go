package dummy

import (
	"io"
	"net"
	"time"
)

var _ net.Conn = new(Conn)

// Conn journals everything written into it. Reads always return io.EOF.
type Conn struct {
	Data     []byte
	writeErr error
	closed   bool
	nop      bool
}

func NewConn() *Conn {
	return new(Conn)
}

func (c *Conn) Read([]byte) (n int, err error) {
	return 0, io.EOF
}

func (c *Conn) Write(b []byte) (n int, err error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	if c.closed {
		return 0, net.ErrClosed
	}

	if !c.nop {
		c.Data = append(c.Data, b...)
	}

	return len(b), nil
}

func (c *Conn) Close() error {
	if c.closed {
		return net.ErrClosed
	}

	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	return c.closed
}

// Written returns journaled data as a string.
func (c *Conn) Written() string {
	return string(c.Data)
}

// Reset drops the journal.
func (c *Conn) Reset() {
	c.Data = c.Data[:0]
}

func (c *Conn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8000}
}

func (c *Conn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000}
}

func (c *Conn) SetDeadline(time.Time) error {
	return nil
}

func (c *Conn) SetReadDeadline(time.Time) error {
	return nil
}

func (c *Conn) SetWriteDeadline(time.Time) error {
	return nil
}

// Nop disables journaling.
func (c *Conn) Nop() *Conn {
	c.nop = true
	return c
}

// FailWrites makes every following write fail with err.
func (c *Conn) FailWrites(err error) *Conn {
	c.writeErr = err
	return c
}

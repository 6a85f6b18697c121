package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/streamecho/transport"
)

var _ transport.Client = new(Client)

// Client returns the data it was initialised with, piece by piece, and io.EOF afterwards,
// unless set to loop. Writes land in the underlying Conn.
type Client struct {
	conn    *Conn
	data    [][]byte
	tmp     []byte
	pointer int
	loop    bool
	closed  bool
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		conn: NewConn(),
		data: data,
	}
}

func (c *Client) Read() (data []byte, err error) {
	if c.closed {
		return nil, io.EOF
	}

	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		if !c.loop || len(c.data) == 0 {
			return nil, io.EOF
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

func (c *Client) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *Client) Conn() net.Conn {
	return c.conn
}

func (c *Client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Client) Close() error {
	c.closed = true
	return c.conn.Close()
}

// LoopReads makes the client start over once all the pieces are read.
func (c *Client) LoopReads() *Client {
	c.loop = true
	return c
}

// Written returns everything written into the client.
func (c *Client) Written() string {
	return c.conn.Written()
}

package transport

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/indigo-web/streamecho/config"
	"github.com/panjf2000/gnet/v2"
)

// EventLoop serves connections on gnet event loops instead of goroutines. With
// config.NET.Multicore off, everything happens on a single loop, so sessions are
// never accessed concurrently.
type EventLoop struct {
	gnet.BuiltinEventEngine
	addr    string
	handler Handler
	engine  gnet.Engine
	booted  *atomic.Bool
	stop    *atomic.Bool
	done    chan struct{}
}

func NewEventLoop() *EventLoop {
	return &EventLoop{
		booted: new(atomic.Bool),
		stop:   new(atomic.Bool),
		done:   make(chan struct{}),
	}
}

// Bind only validates the address, as the engine binds the socket by itself on start.
func (e *EventLoop) Bind(addr string) error {
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}

	e.addr = addr
	return nil
}

func (e *EventLoop) Listen(cfg config.NET, h Handler) error {
	defer close(e.done)

	e.handler = h
	return gnet.Run(e, "tcp://"+e.addr,
		gnet.WithMulticore(cfg.Multicore),
		gnet.WithReadBufferCap(cfg.ReadBufferSize),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
	)
}

func (e *EventLoop) OnBoot(eng gnet.Engine) gnet.Action {
	e.engine = eng
	e.booted.Store(true)
	if e.stop.Load() {
		return gnet.Shutdown
	}

	return gnet.None
}

func (e *EventLoop) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	conn := &loopConn{Conn: c}
	c.SetContext(&loopSession{
		conn:    conn,
		session: e.handler.Spawn(conn),
	})

	return nil, gnet.None
}

func (e *EventLoop) OnTraffic(c gnet.Conn) gnet.Action {
	ls, ok := c.Context().(*loopSession)
	if !ok {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		return gnet.Close
	}

	if err = ls.session.Feed(data); err != nil || ls.session.Done() || ls.conn.closed {
		return gnet.Close
	}

	return gnet.None
}

func (e *EventLoop) OnClose(c gnet.Conn, _ error) gnet.Action {
	if ls, ok := c.Context().(*loopSession); ok {
		ls.session.Close()
		c.SetContext(nil)
	}

	return gnet.None
}

func (e *EventLoop) Stop() {
	e.stop.Store(true)
	if !e.booted.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.engine.Stop(ctx)
}

// Close is no-op, as the engine releases the socket on stop.
func (e *EventLoop) Close() {}

func (e *EventLoop) Wait() {
	if e.booted.Load() {
		<-e.done
	}
}

type loopSession struct {
	conn    *loopConn
	session Session
}

// loopConn defers closing to the event loop: gnet.Close is returned from OnTraffic
// once the session closed the connection, flushing everything written before.
type loopConn struct {
	gnet.Conn
	closed bool
}

func (c *loopConn) Close() error {
	c.closed = true
	return nil
}

package chunked

import (
	"strconv"

	"github.com/indigo-web/streamecho/config"
	"github.com/indigo-web/streamecho/http/status"
	"github.com/indigo-web/streamecho/internal/message"
	"github.com/indigo-web/streamecho/internal/timer"
)

const (
	crlf             = "\r\n"
	protocol         = "HTTP/1.1 "
	transferEncoding = "Transfer-Encoding: chunked\r\n"
	contentType      = "Content-Type: "
	connection       = "Connection: "
	date             = "Date: "
)

var finalizer = []byte("0\r\n\r\n")

type State uint8

const (
	AwaitingHeaders State = iota
	StreamingBody
	// Idle is reachable in persistent mode only: the terminator is sent, the connection
	// stays open and the writer waits for the next message.
	Idle
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingHeaders:
		return "AwaitingHeaders"
	case StreamingBody:
		return "StreamingBody"
	case Idle:
		return "Idle"
	case Closed:
		return "Closed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

type Conn interface {
	Write([]byte) (int, error)
	Close() error
}

var _ message.Listener = new(Writer)

// Writer streams the response back as soon as the request headers are known. Each body
// fragment becomes exactly one chunk, so the request body is never held in memory.
type Writer struct {
	conn       Conn
	buff       []byte
	preamble   []byte
	state      State
	persistent bool
	chunks     int
	written    int64
}

func NewWriter(conn Conn, cfg config.Response) *Writer {
	return &Writer{
		conn:       conn,
		preamble:   renderPreamble(cfg),
		persistent: cfg.Persistent,
	}
}

// renderPreamble renders everything up to the Date header value, which is the only
// part changing between responses.
func renderPreamble(cfg config.Response) []byte {
	buff := make([]byte, 0, 128)
	buff = append(buff, protocol...)
	buff = strconv.AppendUint(buff, uint64(status.OK), 10)
	buff = append(buff, ' ')
	buff = append(buff, status.Text(status.OK)...)
	buff = append(buff, crlf...)
	buff = append(buff, transferEncoding...)
	buff = append(buff, contentType...)
	buff = append(buff, cfg.ContentType...)
	buff = append(buff, crlf...)
	buff = append(buff, connection...)
	if cfg.Persistent {
		buff = append(buff, "keep-alive"...)
	} else {
		buff = append(buff, "close"...)
	}
	buff = append(buff, crlf...)

	return append(buff, date...)
}

func (w *Writer) OnMessageBegin() error {
	switch w.state {
	case AwaitingHeaders:
		return nil
	case Idle:
		w.state = AwaitingHeaders
		return nil
	case Closed:
		return status.ErrCloseConnection
	default:
		return status.ErrBadWriterState
	}
}

func (w *Writer) OnHeadersComplete(*message.Context) error {
	switch w.state {
	case AwaitingHeaders:
	case Closed:
		return status.ErrCloseConnection
	default:
		return status.ErrBadWriterState
	}

	w.buff = append(w.buff[:0], w.preamble...)
	w.buff = timer.AppendDate(w.buff)
	w.buff = append(w.buff, crlf+crlf...)
	w.state = StreamingBody

	return w.write(w.buff)
}

func (w *Writer) OnData(fragment []byte) error {
	switch w.state {
	case StreamingBody:
	case Closed:
		return status.ErrCloseConnection
	default:
		return status.ErrBadWriterState
	}

	if len(fragment) == 0 {
		// an empty chunk is the terminator, so it mustn't be sent in the middle of the body
		return nil
	}

	w.buff = strconv.AppendUint(w.buff[:0], uint64(len(fragment)), 16)
	w.buff = append(w.buff, crlf...)
	w.buff = append(w.buff, fragment...)
	w.buff = append(w.buff, crlf...)
	w.chunks++

	return w.write(w.buff)
}

func (w *Writer) OnMessageComplete(*message.Context) error {
	switch w.state {
	case StreamingBody:
	case Closed:
		return status.ErrCloseConnection
	default:
		return status.ErrBadWriterState
	}

	err := w.write(finalizer)
	if w.persistent && err == nil {
		w.state = Idle
		return nil
	}

	w.state = Closed
	if closeErr := w.conn.Close(); err == nil {
		err = closeErr
	}

	return err
}

// State returns the current state of the writer.
func (w *Writer) State() State {
	return w.state
}

// Chunks returns the number of body chunks sent, not counting the terminator.
func (w *Writer) Chunks() int {
	return w.chunks
}

// Written returns the number of bytes successfully written into the connection.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) write(b []byte) error {
	n, err := w.conn.Write(b)
	w.written += int64(n)

	return err
}

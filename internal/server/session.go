package server

import (
	"errors"
	"fmt"
	"log"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/streamecho/config"
	"github.com/indigo-web/streamecho/http/status"
	"github.com/indigo-web/streamecho/internal/chunked"
	"github.com/indigo-web/streamecho/internal/message"
	"github.com/indigo-web/streamecho/internal/parser"
	"github.com/indigo-web/streamecho/transport"
)

// executor is the part of the parser the session depends on.
type executor interface {
	Execute(data []byte) (int, error)
	Method() string
}

var (
	_ transport.Session = new(Session)
	_ message.Listener  = new(Session)
)

// Session binds a connection, a parser, a message context and a chunked writer
// together. The body of each message is streamed back chunk by chunk as soon as it
// arrives.
type Session struct {
	id       string
	cfg      *config.Config
	conn     transport.Conn
	logger   Logger
	ctx      *message.Context
	parser   executor
	writer   *chunked.Writer
	err      error
	closed   bool
	messages int
	// counters of the current message
	bodyBytes int
	chunks    int
}

func NewSession(cfg *config.Config, conn transport.Conn, logger Logger) *Session {
	s := newSession(cfg, conn, logger)
	s.parser = parser.New(s.ctx, cfg.Parser)

	return s
}

func newSession(cfg *config.Config, conn transport.Conn, logger Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}

	s := &Session{
		id:     uniuri.New(),
		cfg:    cfg,
		conn:   conn,
		logger: logger,
		writer: chunked.NewWriter(conn, cfg.Response),
	}
	s.ctx = message.New(s)

	return s
}

// Feed runs the parser over the whole buffer. Anything short of consuming every byte
// aborts the session, and every following call returns the same error.
func (s *Session) Feed(data []byte) error {
	if s.err != nil {
		return s.err
	}

	n, err := s.parser.Execute(data)
	if err != nil && s.writer.State() == chunked.Closed && errors.Is(err, status.ErrCloseConnection) {
		// the response is complete and the connection is hung up, so whatever follows
		// is of no interest
		return nil
	}

	switch {
	case err != nil:
		s.err = fmt.Errorf("%w: %w", status.ErrParse, err)
	case n != len(data):
		s.err = fmt.Errorf("%w: consumed %d out of %d bytes", status.ErrParse, n, len(data))
	default:
		return nil
	}

	s.logger.Printf("WARNING: session %s (%s): aborting: %s", s.id, s.remote(), s.err)

	return s.err
}

// Done reports whether the connection must be closed.
func (s *Session) Done() bool {
	return s.closed || s.err != nil || s.writer.State() == chunked.Closed
}

// Close is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}

	s.closed = true
	if !s.cfg.Log.AccessLog {
		return
	}

	record := sessionRecord{
		Conn:     s.id,
		Remote:   s.remote(),
		Messages: s.messages,
		Written:  s.writer.Written(),
	}
	if s.err != nil {
		record.Error = s.err.Error()
	}

	logJSON(s.logger, record)
}

// ID returns the connection identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Err returns the error the session was aborted with, if any.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) OnMessageBegin() error {
	s.bodyBytes, s.chunks = 0, 0
	return s.writer.OnMessageBegin()
}

func (s *Session) OnHeadersComplete(ctx *message.Context) error {
	return s.writer.OnHeadersComplete(ctx)
}

func (s *Session) OnData(fragment []byte) error {
	s.bodyBytes += len(fragment)
	if len(fragment) > 0 {
		s.chunks++
	}

	return s.writer.OnData(fragment)
}

func (s *Session) OnMessageComplete(ctx *message.Context) error {
	err := s.writer.OnMessageComplete(ctx)
	s.messages++

	if s.cfg.Log.AccessLog {
		logJSON(s.logger, accessRecord{
			Conn:      s.id,
			Remote:    s.remote(),
			Method:    s.parser.Method(),
			URL:       ctx.URL(),
			Headers:   ctx.Headers(),
			BodyBytes: s.bodyBytes,
			Chunks:    s.chunks,
		})
	}

	return err
}

func (s *Session) remote() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return "unknown"
}

// Handler spawns a Session for every new connection.
type Handler struct {
	cfg    *config.Config
	logger Logger
}

var _ transport.Handler = new(Handler)

func NewHandler(cfg *config.Config, logger Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger,
	}
}

func (h *Handler) Spawn(conn transport.Conn) transport.Session {
	return NewSession(h.cfg, conn, h.logger)
}

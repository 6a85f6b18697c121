package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/streamecho/config"
	"github.com/indigo-web/streamecho/http/status"
	"github.com/stretchr/testify/require"
)

type fragment struct {
	Kind string
	Data string
}

// recorder journals every callback. Adjacent fragments of the same kind are kept
// separate, use join() to glue them.
type recorder struct {
	events  []fragment
	onEvent func(kind string) error
}

func (r *recorder) push(kind string, data []byte) error {
	r.events = append(r.events, fragment{Kind: kind, Data: string(data)})
	if r.onEvent != nil {
		return r.onEvent(kind)
	}

	return nil
}

func (r *recorder) OnMessageBegin() error { return r.push("begin", nil) }
func (r *recorder) OnURL(b []byte) error { return r.push("url", b) }
func (r *recorder) OnHeaderField(b []byte) error { return r.push("field", b) }
func (r *recorder) OnHeaderValue(b []byte) error { return r.push("value", b) }
func (r *recorder) OnHeadersComplete() error { return r.push("headers_complete", nil) }
func (r *recorder) OnBody(b []byte) error { return r.push("body", b) }
func (r *recorder) OnMessageComplete() error { return r.push("complete", nil) }

// join glues adjacent fragments of the same kind together.
func (r *recorder) join() (joined []fragment) {
	for _, event := range r.events {
		if n := len(joined); n > 0 && joined[n-1].Kind == event.Kind && event.Data != "" {
			joined[n-1].Data += event.Data
			continue
		}

		joined = append(joined, event)
	}

	return joined
}

func (r *recorder) count(kind string) (n int) {
	for _, event := range r.events {
		if event.Kind == kind {
			n++
		}
	}

	return n
}

func newParser() (*Parser, *recorder) {
	r := new(recorder)
	return New(r, config.Default().Parser), r
}

func feed(t *testing.T, p *Parser, pieces ...string) {
	for _, piece := range pieces {
		n, err := p.Execute([]byte(piece))
		require.NoError(t, err)
		require.Equal(t, len(piece), n)
	}
}

func bytewise(data string) []string {
	pieces := make([]string, len(data))
	for i := range data {
		pieces[i] = data[i : i+1]
	}

	return pieces
}

const simpleGET = "GET /hello?name=world HTTP/1.1\r\nHost: localhost:8000\r\nAccept: */*\r\n\r\n"

var simpleGETEvents = []fragment{
	{"begin", ""},
	{"url", "/hello?name=world"},
	{"field", "Host"}, {"value", "localhost:8000"},
	{"field", "Accept"}, {"value", "*/*"},
	{"headers_complete", ""},
	{"complete", ""},
}

func TestParser_Simple(t *testing.T) {
	t.Run("whole buffer", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, simpleGET)
		require.Equal(t, simpleGETEvents, r.events)
		require.Equal(t, "GET", p.Method())
		require.Equal(t, 1, p.ProtoMajor())
		require.Equal(t, 1, p.ProtoMinor())
		require.False(t, p.Upgrade())
	})

	t.Run("byte by byte", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, bytewise(simpleGET)...)
		require.Equal(t, simpleGETEvents, r.join())
		require.Greater(t, r.count("url"), 1, "fragments must not be buffered")
	})

	t.Run("split at every position", func(t *testing.T) {
		for i := 1; i < len(simpleGET); i++ {
			p, r := newParser()
			feed(t, p, simpleGET[:i], simpleGET[i:])
			require.Equal(t, simpleGETEvents, r.join(), "split at %d", i)
		}
	})

	t.Run("LF only line endings", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, "GET / HTTP/1.0\nHost: x\n\n")
		require.Equal(t, []fragment{
			{"begin", ""}, {"url", "/"}, {"field", "Host"}, {"value", "x"},
			{"headers_complete", ""}, {"complete", ""},
		}, r.events)
		require.Equal(t, 0, p.ProtoMinor())
	})

	t.Run("empty header value", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, "GET / HTTP/1.1\r\nX-Empty:\r\nX-Spaces:   \r\nHost: x\r\n\r\n")
		require.Equal(t, []fragment{
			{"begin", ""}, {"url", "/"},
			{"field", "X-Empty"}, {"value", ""},
			{"field", "X-Spaces"}, {"value", ""},
			{"field", "Host"}, {"value", "x"},
			{"headers_complete", ""}, {"complete", ""},
		}, r.events)
	})

	t.Run("many random headers", func(t *testing.T) {
		var (
			request strings.Builder
			names   []string
		)

		request.WriteString("GET / HTTP/1.1\r\n")
		for range 20 {
			name := uniuri.NewLen(16)
			names = append(names, name)
			request.WriteString(fmt.Sprintf("%[1]s: %[1]s\r\n", name))
		}
		request.WriteString("\r\n")

		p, r := newParser()
		feed(t, p, request.String())

		var fields []string
		for _, event := range r.events {
			if event.Kind == "field" {
				fields = append(fields, event.Data)
			}
		}
		require.Equal(t, names, fields)
	})
}

func TestParser_Body(t *testing.T) {
	t.Run("content length", func(t *testing.T) {
		p, r := newParser()
		feed(t, p,
			"POST /echo HTTP/1.1\r\nContent-Length: 13\r\n\r\nHello",
			", ",
			"world!",
		)

		require.Equal(t, []string{"Hello", ", ", "world!"}, bodyPieces(r))
		require.Equal(t, "complete", r.events[len(r.events)-1].Kind)
	})

	t.Run("zero content length", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, "POST / HTTP/1.1\r\nContent-Length: 0\r\n\r\n")
		require.Empty(t, bodyPieces(r))
		require.Equal(t, "complete", r.events[len(r.events)-1].Kind)
	})

	t.Run("chunked", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nHello\r\n6\r\n, worl\r\n2\r\nd!\r\n0\r\n\r\n")
		require.Equal(t, "Hello, world!", strings.Join(bodyPieces(r), ""))
		require.Equal(t, "complete", r.events[len(r.events)-1].Kind)
	})

	t.Run("chunked in two reads", func(t *testing.T) {
		p, r := newParser()
		feed(t, p,
			"POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nHello\r\n",
			"7\r\n, world\r\n0\r\n\r\n",
		)
		require.Equal(t, "Hello, world", strings.Join(bodyPieces(r), ""))
		require.Equal(t, 1, r.count("complete"))
	})

	t.Run("pipelined", func(t *testing.T) {
		p, r := newParser()
		feed(t, p, "POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi"+simpleGET)
		require.Equal(t, 2, r.count("begin"))
		require.Equal(t, 2, r.count("complete"))
		require.Equal(t, "GET", p.Method())
	})

	t.Run("body too large", func(t *testing.T) {
		cfg := config.Default().Parser
		cfg.MaxBodySize = 4
		p := New(new(recorder), cfg)
		_, err := p.Execute([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\n"))
		require.ErrorIs(t, err, status.ErrBodyTooLarge)
	})
}

func bodyPieces(r *recorder) (pieces []string) {
	for _, event := range r.events {
		if event.Kind == "body" {
			pieces = append(pieces, event.Data)
		}
	}

	return pieces
}

func TestParser_Errors(t *testing.T) {
	tcs := []struct {
		Name    string
		Request string
		Err     error
	}{
		{"unknown method", "BREW /pot HTTP/1.1\r\n\r\n", status.ErrMethodNotImplemented},
		{"lowercase method", "get / HTTP/1.1\r\n\r\n", status.ErrBadRequest},
		{"unsupported version", "GET / HTTP/2.0\r\n\r\n", status.ErrHTTPVersionNotSupported},
		{"garbage version", "GET / HTTPS/1\r\n\r\n", status.ErrBadRequest},
		{"no space in header name", "GET / HTTP/1.1\r\nBad Header: x\r\n\r\n", status.ErrBadRequest},
		{"invalid content length", "POST / HTTP/1.1\r\nContent-Length: twelve\r\n\r\n", status.ErrInvalidContentLength},
		{"bad chunk", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n", status.ErrBadChunk},
	}

	for _, tc := range tcs {
		t.Run(tc.Name, func(t *testing.T) {
			p, _ := newParser()
			n, err := p.Execute([]byte(tc.Request))
			require.ErrorIs(t, err, tc.Err)
			require.Less(t, n, len(tc.Request))
			require.ErrorIs(t, p.Err(), tc.Err)

			_, err = p.Execute([]byte(simpleGET))
			require.ErrorIs(t, err, status.ErrParserDead)

			p.Reset()
			require.NoError(t, p.Err())
			n, err = p.Execute([]byte(simpleGET))
			require.NoError(t, err)
			require.Equal(t, len(simpleGET), n)
		})
	}

	t.Run("limits", func(t *testing.T) {
		cfg := config.Default().Parser
		cfg.MaxURLLength = 8
		cfg.MaxHeadersNumber = 1
		cfg.MaxHeaderFieldLength = 4

		_, err := New(new(recorder), cfg).Execute([]byte("GET /very/long/path HTTP/1.1\r\n\r\n"))
		require.ErrorIs(t, err, status.ErrURITooLong)

		_, err = New(new(recorder), cfg).Execute([]byte("GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\n\r\n"))
		require.ErrorIs(t, err, status.ErrTooManyHeaders)

		_, err = New(new(recorder), cfg).Execute([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
		require.NoError(t, err)

		_, err = New(new(recorder), cfg).Execute([]byte("GET / HTTP/1.1\r\nAccept: x\r\n\r\n"))
		require.ErrorIs(t, err, status.ErrHeaderFieldsTooLarge)
	})

	t.Run("callback error stops the parser", func(t *testing.T) {
		errStop := errors.New("stop")
		p, r := newParser()
		r.onEvent = func(kind string) error {
			if kind == "headers_complete" {
				return errStop
			}

			return nil
		}

		n, err := p.Execute([]byte(simpleGET + simpleGET))
		require.ErrorIs(t, err, errStop)
		require.Equal(t, len(simpleGET), n)
		require.Zero(t, r.count("complete"))
	})
}

func TestParser_Pause(t *testing.T) {
	p, r := newParser()
	request := "POST / HTTP/1.1\r\nContent-Length: 4\r\n\r\nbody"
	r.onEvent = func(kind string) error {
		if kind == "headers_complete" {
			p.Pause()
		}

		return nil
	}

	n, err := p.Execute([]byte(request))
	require.ErrorIs(t, err, status.ErrPaused)
	require.Equal(t, len(request)-len("body"), n)
	require.True(t, p.Paused())
	require.NoError(t, p.Err())

	_, err = p.Execute([]byte(request[n:]))
	require.ErrorIs(t, err, status.ErrPaused)

	p.Unpause()
	feed(t, p, request[n:])
	require.Equal(t, []string{"body"}, bodyPieces(r))
}

func TestParser_ExecuteRange(t *testing.T) {
	p, r := newParser()
	buff := []byte("xx" + simpleGET + "yy")

	for _, rng := range [][2]int{{-1, 2}, {0, -1}, {len(buff) + 1, 0}, {2, len(buff)}} {
		_, err := p.ExecuteRange(buff, rng[0], rng[1])
		require.ErrorIs(t, err, status.ErrOutOfBounds, "range %v", rng)
	}

	n, err := p.ExecuteRange(buff, 2, len(simpleGET))
	require.NoError(t, err)
	require.Equal(t, len(simpleGET), n)
	require.Equal(t, simpleGETEvents, r.events)
}

func TestParser_Rebind(t *testing.T) {
	p, first := newParser()
	second := new(recorder)

	feed(t, p, "GET / HTTP/1.1\r\nHo")
	p.Rebind(second)
	feed(t, p, "st: x\r\n\r\n")

	require.Equal(t, "Ho", first.events[len(first.events)-1].Data)
	require.Equal(t, []fragment{
		{"field", "st"}, {"value", "x"}, {"headers_complete", ""}, {"complete", ""},
	}, second.events)
}

func TestParser_Upgrade(t *testing.T) {
	p, _ := newParser()
	feed(t, p, "GET /ws HTTP/1.1\r\nUpgrade: websocket\r\nConnection: upgrade\r\n\r\n")
	require.True(t, p.Upgrade())

	p, _ = newParser()
	feed(t, p, "CONNECT example.com:443 HTTP/1.1\r\n\r\n")
	require.True(t, p.Upgrade())
}

package config

import (
	"math"
	"time"
)

type (
	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
		// Multicore enables one event loop per CPU core for the event-loop transport. When
		// disabled, all the connections are served by a single event loop.
		Multicore bool `test:"nullable"`
	}

	Parser struct {
		// MaxURLLength limits the request-target. Fragments are never buffered by the parser,
		// so this is only a counter.
		MaxURLLength int
		// MaxHeaderFieldLength limits a single header name.
		MaxHeaderFieldLength int
		// MaxHeaderValueLength limits a single header value.
		MaxHeaderValueLength int
		// MaxHeadersNumber is the maximal number of header lines in a single message.
		MaxHeadersNumber int
		// MaxBodySize describes the maximal size of a body, that can be processed. Both
		// plain and chunked bodies are counted.
		MaxBodySize uint64
	}

	Response struct {
		// ContentType is the value of the Content-Type header of every response.
		ContentType string
		// Persistent keeps the connection open after the terminating chunk and re-arms
		// the writer on the next message. Off by default: every response announces
		// Connection: close and the connection is closed after the first message.
		Persistent bool `test:"nullable"`
	}

	Log struct {
		// AccessLog enables a JSON record per completed message.
		AccessLog bool
	}
)

// Config holds settings used across the server, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	NET      NET
	Parser   Parser
	Response Response
	Log      Log
}

// Default returns default config.
func Default() *Config {
	return &Config{
		NET: NET{
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
		},
		Parser: Parser{
			MaxURLLength:         16 * 1024,
			MaxHeaderFieldLength: 256,
			MaxHeaderValueLength: 8 * 1024,
			MaxHeadersNumber:     100,
			// the body is streamed back and never stored, so there is no memory reason to
			// limit it. The limit is left for those who want one
			MaxBodySize: math.MaxUint64,
		},
		Response: Response{
			ContentType: "text/plain",
		},
		Log: Log{
			AccessLog: true,
		},
	}
}

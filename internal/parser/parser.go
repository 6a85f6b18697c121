package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/streamecho/config"
	"github.com/indigo-web/streamecho/http/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// Callbacks receives parsing results. Data callbacks get sub-slices of the buffer passed
// to Execute, valid only until the callback returns. A field split between two Execute
// calls arrives as several fragments. A non-nil error stops the parser.
type Callbacks interface {
	OnMessageBegin() error
	OnURL(fragment []byte) error
	OnHeaderField(fragment []byte) error
	OnHeaderValue(fragment []byte) error
	OnHeadersComplete() error
	OnBody(fragment []byte) error
	OnMessageComplete() error
}

const (
	// the longest known methods are OPTIONS and CONNECT
	maxMethodLength = 7
	protoLength     = len("HTTP/1.1")
)

// Parser is a stream-based HTTP/1.x requests parser. It never buffers fields: every
// piece of the URL, header names and values, and the body is reported as soon as it's
// seen. Only framing headers (Content-Length, Transfer-Encoding) are copied, as the
// parser needs them itself.
type Parser struct {
	cb      Callbacks
	cfg     config.Parser
	chunked *chunkedbody.Parser

	state  parserState
	err    error
	paused bool

	method       []byte
	proto        []byte
	major, minor int
	upgrade      bool

	urlLength     int
	headersNumber int
	fieldLength   int
	valueLength   int
	field         []byte
	value         []byte
	keepValue     bool

	contentLength uint64
	isChunked     bool
	hasTrailer    bool
	bodyLeft      uint64
	bodyRead      uint64
}

func New(cb Callbacks, cfg config.Parser) *Parser {
	return &Parser{
		cb:      cb,
		cfg:     cfg,
		chunked: chunkedbody.NewParser(chunkedbody.DefaultSettings()),
		state:   eMessageBegin,
		method:  make([]byte, 0, maxMethodLength),
		proto:   make([]byte, 0, protoLength),
		field:   make([]byte, 0, len("transfer-encoding")),
	}
}

// Execute feeds the parser with data and returns the number of consumed bytes. The whole
// buffer is consumed unless an error occurs. In that case n is the offset the parser
// stopped at, and the parser refuses any further data until Reset.
func (p *Parser) Execute(data []byte) (n int, err error) {
	if p.err != nil {
		return 0, status.ErrParserDead
	}

	if p.paused {
		return 0, status.ErrPaused
	}

	n, err = p.execute(data)
	if err != nil && err != status.ErrPaused {
		p.err = err
	}

	return n, err
}

// ExecuteRange is Execute over buf[start:start+length] with the range checked.
func (p *Parser) ExecuteRange(buf []byte, start, length int) (int, error) {
	if start < 0 || length < 0 || start > len(buf) || length > len(buf)-start {
		return 0, status.ErrOutOfBounds
	}

	return p.Execute(buf[start : start+length])
}

// Pause stops the parser. Called from a callback, it takes effect right after the
// callback returns: Execute reports the bytes consumed so far together with status.ErrPaused.
func (p *Parser) Pause() {
	p.paused = true
}

func (p *Parser) Unpause() {
	p.paused = false
}

func (p *Parser) Paused() bool {
	return p.paused
}

// Reset brings the parser into its initial state, awaiting a new message. Errors are
// forgotten.
func (p *Parser) Reset() {
	p.state = eMessageBegin
	p.err = nil
	p.paused = false
	p.chunked = chunkedbody.NewParser(chunkedbody.DefaultSettings())
	p.beginMessage()
}

// Rebind replaces the callbacks receiver.
func (p *Parser) Rebind(cb Callbacks) {
	p.cb = cb
}

// Err returns the error the parser died of, if any.
func (p *Parser) Err() error {
	return p.err
}

// Method returns the method of the current message. It stays valid until the next message
// begins.
func (p *Parser) Method() string {
	return string(p.method)
}

func (p *Parser) ProtoMajor() int {
	return p.major
}

func (p *Parser) ProtoMinor() int {
	return p.minor
}

// Upgrade reports whether the current message asks for a protocol switch: either it
// is a CONNECT or it carries the Upgrade header.
func (p *Parser) Upgrade() bool {
	return p.upgrade
}

func (p *Parser) beginMessage() {
	p.method = p.method[:0]
	p.proto = p.proto[:0]
	p.major, p.minor = 0, 0
	p.upgrade = false
	p.urlLength = 0
	p.headersNumber = 0
	p.contentLength = 0
	p.isChunked = false
	p.hasTrailer = false
	p.bodyLeft = 0
	p.bodyRead = 0
}

func (p *Parser) execute(data []byte) (int, error) {
	i := 0

	for i < len(data) {
		if p.paused {
			return i, status.ErrPaused
		}

		switch p.state {
		case eMessageBegin:
			if c := data[i]; c == '\r' || c == '\n' {
				// tolerate empty lines between pipelined messages
				i++
				continue
			}

			p.beginMessage()
			p.state = eMethod
			if err := p.cb.OnMessageBegin(); err != nil {
				return i, err
			}
		case eMethod:
			c := data[i]
			if c == ' ' {
				if !isKnownMethod(p.method) {
					return i, status.ErrMethodNotImplemented
				}

				p.upgrade = uf.B2S(p.method) == "CONNECT"
				p.state = eURLStart
				i++
				continue
			}

			if c < 'A' || c > 'Z' {
				return i, status.ErrBadRequest
			}

			if len(p.method) == maxMethodLength {
				return i, status.ErrMethodNotImplemented
			}

			p.method = append(p.method, c)
			i++
		case eURLStart:
			if !isURLChar(data[i]) {
				return i, status.ErrBadRequest
			}

			p.state = eURL
		case eURL:
			start := i
			for i < len(data) && isURLChar(data[i]) {
				i++
			}

			end := i
			p.urlLength += end - start
			if p.urlLength > p.cfg.MaxURLLength {
				return start, status.ErrURITooLong
			}

			if i < len(data) {
				if data[i] != ' ' {
					return i, status.ErrBadRequest
				}

				p.state = eProto
				i++
			}

			if end > start {
				if err := p.cb.OnURL(data[start:end]); err != nil {
					return i, err
				}
			}
		case eProto:
			switch c := data[i]; c {
			case '\r', '\n':
				if err := p.parseProto(); err != nil {
					return i, err
				}

				if c == '\r' {
					p.state = eProtoLF
				} else {
					p.state = eHeaderStart
				}
			default:
				if len(p.proto) == protoLength {
					return i, status.ErrHTTPVersionNotSupported
				}

				p.proto = append(p.proto, c)
			}

			i++
		case eProtoLF:
			if data[i] != '\n' {
				return i, status.ErrBadRequest
			}

			p.state = eHeaderStart
			i++
		case eHeaderStart:
			switch c := data[i]; {
			case c == '\r':
				p.state = eHeadersLF
				i++
			case c == '\n':
				i++
				if err := p.headersComplete(); err != nil {
					return i, err
				}
			case isTokenChar(c):
				p.headersNumber++
				if p.headersNumber > p.cfg.MaxHeadersNumber {
					return i, status.ErrTooManyHeaders
				}

				p.field = p.field[:0]
				p.fieldLength = 0
				p.state = eHeaderField
			default:
				return i, status.ErrBadRequest
			}
		case eHeaderField:
			start := i
			for i < len(data) && isTokenChar(data[i]) {
				i++
			}

			end := i
			p.fieldLength += end - start
			if p.fieldLength > p.cfg.MaxHeaderFieldLength {
				return start, status.ErrHeaderFieldsTooLarge
			}

			if len(p.field)+end-start <= cap(p.field) {
				p.field = append(p.field, data[start:end]...)
			}

			if i < len(data) {
				if data[i] != ':' {
					return i, status.ErrBadRequest
				}

				p.state = eHeaderValueStart
				i++
			}

			if end > start {
				if err := p.cb.OnHeaderField(data[start:end]); err != nil {
					return i, err
				}
			}
		case eHeaderValueStart:
			c := data[i]
			if c == ' ' || c == '\t' {
				i++
				continue
			}

			p.valueLength = 0
			p.value = p.value[:0]
			p.keepValue = p.fieldLength == len(p.field) && p.isFramingHeader()

			if c != '\r' && c != '\n' {
				p.state = eHeaderValue
				continue
			}

			// an empty value is still reported, so the name can be committed
			if err := p.cb.OnHeaderValue(data[i:i]); err != nil {
				return i, err
			}

			p.state = eHeaderValue
		case eHeaderValue:
			start := i
			for i < len(data) && data[i] != '\r' && data[i] != '\n' {
				i++
			}

			end := i
			p.valueLength += end - start
			if p.valueLength > p.cfg.MaxHeaderValueLength {
				return start, status.ErrHeaderFieldsTooLarge
			}

			if p.keepValue {
				p.value = append(p.value, data[start:end]...)
			}

			lineEnd := false
			if i < len(data) {
				if data[i] == '\r' {
					p.state = eHeaderValueLF
				} else {
					p.state = eHeaderStart
					lineEnd = true
				}

				i++
			}

			if end > start {
				if err := p.cb.OnHeaderValue(data[start:end]); err != nil {
					return i, err
				}
			}

			if lineEnd {
				if err := p.headerLine(); err != nil {
					return i, err
				}
			}
		case eHeaderValueLF:
			if data[i] != '\n' {
				return i, status.ErrBadRequest
			}

			p.state = eHeaderStart
			i++
			if err := p.headerLine(); err != nil {
				return i, err
			}
		case eHeadersLF:
			if data[i] != '\n' {
				return i, status.ErrBadRequest
			}

			i++
			if err := p.headersComplete(); err != nil {
				return i, err
			}
		case eBody:
			n := uint64(len(data) - i)
			if n > p.bodyLeft {
				n = p.bodyLeft
			}

			piece := data[i : i+int(n)]
			i += int(n)
			p.bodyLeft -= n
			if err := p.body(piece); err != nil {
				return i, err
			}

			if p.bodyLeft == 0 {
				p.state = eMessageBegin
				if err := p.cb.OnMessageComplete(); err != nil {
					return i, err
				}
			}
		case eChunkedBody:
			chunk, extra, err := p.chunked.Parse(data[i:], p.hasTrailer)
			switch err {
			case nil, io.EOF:
			default:
				return i, status.ErrBadChunk
			}

			consumed := len(data) - i - len(extra)
			if consumed == 0 && err == nil {
				return i, status.ErrBadChunk
			}

			i += consumed
			if len(chunk) > 0 {
				if bodyErr := p.body(chunk); bodyErr != nil {
					return i, bodyErr
				}
			}

			if err == io.EOF {
				p.state = eMessageBegin
				if err = p.cb.OnMessageComplete(); err != nil {
					return i, err
				}
			}
		default:
			panic("BUG: unexpected parser state: " + strconv.Itoa(int(p.state)))
		}
	}

	return i, nil
}

func (p *Parser) parseProto() error {
	proto := uf.B2S(p.proto)
	if len(proto) != protoLength || !strings.HasPrefix(proto, "HTTP/") || proto[6] != '.' {
		return status.ErrBadRequest
	}

	major, minor := proto[5], proto[7]
	if !isDigit(major) || !isDigit(minor) {
		return status.ErrBadRequest
	}

	if major != '1' || minor > '1' {
		return status.ErrHTTPVersionNotSupported
	}

	p.major, p.minor = int(major-'0'), int(minor-'0')

	return nil
}

func (p *Parser) isFramingHeader() bool {
	field := uf.B2S(p.field)

	return strcomp.EqualFold(field, "content-length") ||
		strcomp.EqualFold(field, "transfer-encoding") ||
		strcomp.EqualFold(field, "trailer") ||
		strcomp.EqualFold(field, "upgrade")
}

// headerLine is called after every header line. Framing headers are interpreted here.
func (p *Parser) headerLine() error {
	if !p.keepValue {
		return nil
	}

	value := strings.TrimSpace(uf.B2S(p.value))

	switch field := uf.B2S(p.field); {
	case strcomp.EqualFold(field, "content-length"):
		length, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return status.ErrInvalidContentLength
		}

		if length > p.cfg.MaxBodySize {
			return status.ErrBodyTooLarge
		}

		p.contentLength = length
	case strcomp.EqualFold(field, "transfer-encoding"):
		// chunked must be the last applied coding. Anything else isn't ours to decode
		last := value
		if comma := strings.LastIndexByte(value, ','); comma != -1 {
			last = strings.TrimSpace(value[comma+1:])
		}

		p.isChunked = strcomp.EqualFold(last, "chunked")
	case strcomp.EqualFold(field, "trailer"):
		p.hasTrailer = len(value) > 0
	case strcomp.EqualFold(field, "upgrade"):
		p.upgrade = true
	}

	return nil
}

func (p *Parser) headersComplete() error {
	switch {
	case p.isChunked:
		p.state = eChunkedBody
	case p.contentLength > 0:
		p.bodyLeft = p.contentLength
		p.state = eBody
	default:
		p.state = eMessageBegin
	}

	if err := p.cb.OnHeadersComplete(); err != nil {
		return err
	}

	if p.state == eMessageBegin {
		return p.cb.OnMessageComplete()
	}

	return nil
}

func (p *Parser) body(piece []byte) error {
	p.bodyRead += uint64(len(piece))
	if p.bodyRead > p.cfg.MaxBodySize {
		return status.ErrBodyTooLarge
	}

	return p.cb.OnBody(piece)
}

func isKnownMethod(method []byte) bool {
	switch uf.B2S(method) {
	case "GET", "HEAD", "POST", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH":
		return true
	default:
		return false
	}
}

// isURLChar accepts everything except whitespaces and control characters. Non-ASCII
// bytes are let through, validating the target isn't the parser's job.
func isURLChar(c byte) bool {
	return c > ' ' && c != 0x7f
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', isDigit(c):
		return true
	}

	return strings.IndexByte("!#$%&'*+-.^_`|~", c) != -1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

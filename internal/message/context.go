package message

import (
	"iter"

	"github.com/indigo-web/utils/uf"
)

// Listener receives message-level lifecycle signals. Every hook is called synchronously
// from within the parser callback that caused it, so an error returned by a hook stops
// the parser.
type Listener interface {
	OnMessageBegin() error
	// OnHeadersComplete is called before the last header value is committed, so
	// ctx.Headers() lacks it at this point. Use ctx.Pending() to get it.
	OnHeadersComplete(ctx *Context) error
	// OnData gets a body fragment. The fragment is valid only until the hook returns.
	OnData(fragment []byte) error
	// OnMessageComplete is called right before the context is reset.
	OnMessageComplete(ctx *Context) error
}

// Context folds fragments emitted by the parser into whole values. A fragment is just
// a piece of a field, so fragment boundaries never mean field boundaries: a header entry
// is committed only when a fragment of the other kind arrives.
type Context struct {
	listener     Listener
	url          []byte
	pendingName  []byte
	pendingValue []byte
	headers      []string
}

func New(listener Listener) *Context {
	if listener == nil {
		listener = NopListener{}
	}

	return &Context{
		listener: listener,
	}
}

func (c *Context) OnMessageBegin() error {
	c.Reset()
	return c.listener.OnMessageBegin()
}

func (c *Context) OnURL(fragment []byte) error {
	c.url = append(c.url, fragment...)
	return nil
}

func (c *Context) OnHeaderField(fragment []byte) error {
	c.pendingName = append(c.pendingName, fragment...)
	if len(c.pendingValue) > 0 {
		c.commit(&c.pendingValue)
	}

	return nil
}

func (c *Context) OnHeaderValue(fragment []byte) error {
	c.pendingValue = append(c.pendingValue, fragment...)
	if len(c.pendingName) > 0 {
		c.commit(&c.pendingName)
	}

	return nil
}

func (c *Context) OnHeadersComplete() error {
	err := c.listener.OnHeadersComplete(c)
	if len(c.pendingValue) > 0 {
		c.commit(&c.pendingValue)
	}

	return err
}

func (c *Context) OnBody(fragment []byte) error {
	return c.listener.OnData(fragment)
}

func (c *Context) OnMessageComplete() error {
	err := c.listener.OnMessageComplete(c)
	c.Reset()

	return err
}

// Reset brings the context to the state of a freshly constructed one. Buffers are kept.
func (c *Context) Reset() {
	c.url = c.url[:0]
	c.pendingName = c.pendingName[:0]
	c.pendingValue = c.pendingValue[:0]
	c.headers = c.headers[:0]
}

// URL returns the accumulated request-target.
func (c *Context) URL() string {
	return string(c.url)
}

// Headers returns committed entries in commit order: name, value, name, value...
//
// WARNING: the slice is reused after reset. Consider copying it for safe use
func (c *Context) Headers() []string {
	return c.headers
}

// Pairs walks committed entries two at a time. A trailing entry without a counterpart
// is yielded with an empty value.
func (c *Context) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for i := 0; i < len(c.headers); i += 2 {
			var value string
			if i+1 < len(c.headers) {
				value = c.headers[i+1]
			}

			if !yield(c.headers[i], value) {
				break
			}
		}
	}
}

// Pending returns the not yet committed header name and value. The strings are valid
// until the next fragment arrives.
func (c *Context) Pending() (name, value string) {
	return uf.B2S(c.pendingName), uf.B2S(c.pendingValue)
}

// Empty reports whether nothing is accumulated.
func (c *Context) Empty() bool {
	return len(c.url) == 0 && len(c.pendingName) == 0 &&
		len(c.pendingValue) == 0 && len(c.headers) == 0
}

func (c *Context) commit(pending *[]byte) {
	c.headers = append(c.headers, string(*pending))
	*pending = (*pending)[:0]
}

// NopListener ignores every signal.
type NopListener struct{}

func (NopListener) OnMessageBegin() error { return nil }

func (NopListener) OnHeadersComplete(*Context) error { return nil }

func (NopListener) OnData([]byte) error { return nil }

func (NopListener) OnMessageComplete(*Context) error { return nil }

package status

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrCloseConnection = NewError(CloseConnection, "actively closing the connection")

	// ErrParse is returned by a session whose parser didn't consume the whole buffer
	// it was fed with or failed to parse it. The connection is aborted.
	ErrParse = NewError(BadRequest, "parse error")
	// ErrBadWriterState is returned by the response writer when a lifecycle event
	// arrives out of order.
	ErrBadWriterState = NewError(InternalServerError, "response writer received an out-of-order event")

	ErrOutOfBounds = NewError(InternalServerError, "out of bounds")
	ErrPaused      = NewError(CloseConnection, "parser is paused")
	ErrParserDead  = NewError(CloseConnection, "once error occurred, parser cannot be used anymore")

	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
	ErrInvalidContentLength    = NewError(BadRequest, "invalid value for content-length header")
	ErrRequestTimeout          = NewError(RequestTimeout, "request timeout")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrURITooLong              = NewError(RequestURITooLong, "request URI too long")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrMethodNotImplemented    = NewError(NotImplemented, "request method is not supported")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
)

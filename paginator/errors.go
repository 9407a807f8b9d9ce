package paginator

import (
	"fmt"
	"net/http"
)

// HttpError is returned when the query endpoint answers with a non-2xx
// status code.
type HttpError struct {
	StatusCode int
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// QueryError is returned when the server answers 2xx but reports a failed
// query in the body.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return "query error: " + e.Message
}

// StreamError reports a server-pushed error event or a transport failure on
// the streaming connection.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "stream error: " + e.Message
}

// ParseError reports a single malformed streamed message. It never aborts
// the stream.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

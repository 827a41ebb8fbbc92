package model

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// RequestIDHeader carries the correlation id on the wire. It is owned by the
// orchestrator; callers never choose its value.
const RequestIDHeader = "Request-ID"

// Request is an HTTP request as sent or as received by an endpoint.
type Request struct {
	Method string
	// Path is the request URI, query string included.
	Path   string
	Header http.Header
	Body   []byte
}

// Response is an HTTP response as produced by a handler or as received by the
// client.
type Response struct {
	Code    int
	Message string
	Header  http.Header
	Body    []byte
}

// EndpointRef identifies the endpoint that served a Handling.
type EndpointRef interface {
	Name() string
	Addr() net.Addr
}

// Handling is one completed server-side exchange recorded against a chain.
type Handling struct {
	Endpoint   EndpointRef
	Request    *Request
	Response   *Response
	ReceivedAt time.Time
}

// NewRequestFromHTTP snapshots r. The body must already have been read into
// body; r.Body is not touched.
func NewRequestFromHTTP(r *http.Request, body []byte) *Request {
	path := r.RequestURI
	if path == "" && r.URL != nil {
		path = r.URL.RequestURI()
	}
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if r.Host != "" && header.Get("Host") == "" {
		header.Set("Host", r.Host)
	}
	return &Request{
		Method: r.Method,
		Path:   path,
		Header: header,
		Body:   body,
	}
}

// NewResponseFromHTTP reads res.Body to the end and snapshots the response.
// The body is closed.
func NewResponseFromHTTP(res *http.Response) (*Response, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Code:    res.StatusCode,
		Message: ReasonPhrase(res),
		Header:  res.Header.Clone(),
		Body:    body,
	}, nil
}

// ReasonPhrase extracts the reason phrase from res.Status ("601 Something"
// yields "Something").
func ReasonPhrase(res *http.Response) string {
	if _, msg, ok := strings.Cut(res.Status, " "); ok {
		return msg
	}
	return ""
}

// RequestID returns the correlation id carried by the request, if any.
func (r *Request) RequestID() (string, bool) {
	if r == nil || r.Header == nil {
		return "", false
	}
	values := r.Header.Values(RequestIDHeader)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// BodyReader returns a fresh reader over the body.
func (r *Request) BodyReader() io.Reader {
	return bytes.NewReader(r.Body)
}

// Clone deep-copies the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	return &Request{
		Method: r.Method,
		Path:   r.Path,
		Header: cloneHeader(r.Header),
		Body:   bytes.Clone(r.Body),
	}
}

// Clone deep-copies the response so the core can add headers without touching
// a value the handler may keep around.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		Code:    r.Code,
		Message: r.Message,
		Header:  cloneHeader(r.Header),
		Body:    bytes.Clone(r.Body),
	}
}

// StatusMessage returns Message, falling back to the standard reason phrase.
func (r *Response) StatusMessage() string {
	if r.Message != "" {
		return r.Message
	}
	return http.StatusText(r.Code)
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

// SetRequestID replaces every spelling of the correlation header in h with a
// single canonical entry holding id.
func SetRequestID(h http.Header, id string) {
	DelRequestID(h)
	h.Set(RequestIDHeader, id)
}

// DelRequestID removes the correlation header in any letter case, including
// keys that were stored without canonicalization.
func DelRequestID(h http.Header) {
	for k := range h {
		if strings.EqualFold(k, RequestIDHeader) {
			delete(h, k)
		}
	}
}

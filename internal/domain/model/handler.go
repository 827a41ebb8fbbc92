package model

import (
	"net/http"
	"time"
)

// HandlerFunc produces the response an endpoint sends for req. The core treats
// it as opaque: it may block for as long as it likes.
type HandlerFunc func(req *Request) *Response

// DefaultHandler answers 200 OK with no headers and an empty body. It is used
// whenever an inbound request cannot be matched to a chain.
func DefaultHandler(*Request) *Response {
	return &Response{
		Code:    http.StatusOK,
		Message: "OK",
		Header:  http.Header{},
		Body:    []byte{},
	}
}

// StaticHandler always answers with a copy of resp.
func StaticHandler(resp *Response) HandlerFunc {
	return func(*Request) *Response {
		return resp.Clone()
	}
}

// EchoHandler answers 200 with the inbound body and content type.
func EchoHandler(req *Request) *Response {
	header := http.Header{}
	if ct := req.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	return &Response{
		Code:    http.StatusOK,
		Message: "OK",
		Header:  header,
		Body:    append([]byte(nil), req.Body...),
	}
}

// DelayHandler sleeps for d before delegating to next.
func DelayHandler(d time.Duration, next HandlerFunc) HandlerFunc {
	if next == nil {
		next = DefaultHandler
	}
	return func(req *Request) *Response {
		time.Sleep(d)
		return next(req)
	}
}

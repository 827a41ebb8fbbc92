package services

import (
	"net/http"

	model "go_deproxy/internal/domain/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RequestOption customizes one MakeRequest call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	URL     string `validate:"required,http_url"`
	Method  string `validate:"required"`
	Header  http.Header
	Body    []byte
	Handler model.HandlerFunc
}

// newRequestOptions builds the defaults from scratch on every call so no two
// requests ever share a header map or body.
func newRequestOptions(url string) *requestOptions {
	return &requestOptions{
		URL:     url,
		Method:  http.MethodGet,
		Header:  http.Header{},
		Handler: model.DefaultHandler,
	}
}

func WithMethod(method string) RequestOption {
	return func(o *requestOptions) { o.Method = method }
}

// WithHeaders adds a copy of every value in h.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOptions) {
		for k, values := range h {
			for _, v := range values {
				o.Header.Add(k, v)
			}
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.Header.Add(key, value) }
}

// WithBody sends a copy of body.
func WithBody(body []byte) RequestOption {
	return func(o *requestOptions) { o.Body = append([]byte(nil), body...) }
}

// WithHandler sets the function endpoints run for this request. Nil keeps the
// default handler.
func WithHandler(h model.HandlerFunc) RequestOption {
	return func(o *requestOptions) {
		if h != nil {
			o.Handler = h
		}
	}
}

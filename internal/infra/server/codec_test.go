package server

import (
	"bufio"
	"bytes"
	"net/http"
	"strings"
	"testing"

	model "go_deproxy/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int
		want    string
		wantErr error
	}{
		{name: "short", input: "GET / HTTP/1.1\r\nHost: x\r\n", limit: 100, want: "GET / HTTP/1.1\r\n"},
		{name: "exactly at limit", input: "GET / HTTP/1.1\r\n", limit: 16, want: "GET / HTTP/1.1\r\n"},
		{name: "one over limit", input: "GET / HTTP/1.1\r\n", limit: 15, wantErr: errLineTooLong},
		{name: "longer than the read buffer", input: "GET /" + strings.Repeat("x", 10000) + " HTTP/1.1\r\n", limit: 20000,
			want: "GET /" + strings.Repeat("x", 10000) + " HTTP/1.1\r\n"},
		{name: "no terminator and too long", input: strings.Repeat("x", 5000), limit: 4500, wantErr: errLineTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := readRequestLine(bufio.NewReader(strings.NewReader(tt.input)), tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(line))
		})
	}
}

func TestWriteResponse(t *testing.T) {
	tests := []struct {
		name   string
		resp   *model.Response
		method string
		want   string
	}{
		{
			name:   "default handler",
			resp:   model.DefaultHandler(nil),
			method: http.MethodGet,
			want:   "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n",
		},
		{
			name: "sorted headers, repeats kept, custom status",
			resp: &model.Response{
				Code:    601,
				Message: "Something",
				Header:  http.Header{"X-B": {"2"}, "X-A": {"1", "one"}, "Connection": {"keep-alive"}},
				Body:    []byte("body"),
			},
			method: http.MethodGet,
			want: "HTTP/1.1 601 Something\r\nX-A: 1\r\nX-A: one\r\nX-B: 2\r\n" +
				"Content-Length: 4\r\nConnection: close\r\n\r\nbody",
		},
		{
			name:   "handler content length is kept",
			resp:   &model.Response{Code: 200, Header: http.Header{"Content-Length": {"3"}}, Body: []byte("abc")},
			method: http.MethodGet,
			want:   "HTTP/1.1 200 OK\r\nContent-Length: 3\r\nConnection: close\r\n\r\nabc",
		},
		{
			name:   "head has no body",
			resp:   &model.Response{Code: 200, Message: "OK", Body: []byte("abc")},
			method: http.MethodHead,
			want:   "HTTP/1.1 200 OK\r\nContent-Length: 3\r\nConnection: close\r\n\r\n",
		},
		{
			name:   "no content",
			resp:   &model.Response{Code: 204, Body: []byte("ignored")},
			method: http.MethodGet,
			want:   "HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n",
		},
		{
			name:   "newlines in values are flattened",
			resp:   &model.Response{Code: 200, Message: "OK", Header: http.Header{"X-Evil": {"a\r\nInjected: yes"}}},
			method: http.MethodGet,
			want:   "HTTP/1.1 200 OK\r\nX-Evil: a Injected: yes\r\nContent-Length: 0\r\nConnection: close\r\n\r\n",
		},
		{
			name:   "handler transfer encoding is replaced by content length",
			resp:   &model.Response{Code: 200, Message: "OK", Header: http.Header{"Transfer-Encoding": {"chunked"}}, Body: []byte("hello")},
			method: http.MethodGet,
			want:   "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeResponse(bufio.NewWriter(&buf), tt.resp, tt.method))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestReadBody(t *testing.T) {
	body, err := readBody(nopCloser{strings.NewReader("12345")}, 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(body))

	_, err = readBody(nopCloser{strings.NewReader("123456")}, 5)
	assert.ErrorIs(t, err, errBodyTooLarge)

	body, err = readBody(nopCloser{strings.NewReader("123456")}, 0)
	require.NoError(t, err)
	assert.Len(t, body, 6)
}

type nopCloser struct{ *strings.Reader }

func (nopCloser) Close() error { return nil }

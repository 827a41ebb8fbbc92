package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	model "go_deproxy/internal/domain/model"
)

var (
	errLineTooLong  = errors.New("request line too long")
	errBodyTooLarge = errors.New("request body too large")
)

// readRequestLine returns the first line of the request, terminator included.
// A line longer than limit bytes yields errLineTooLong.
func readRequestLine(br *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > limit {
			return nil, errLineTooLong
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

// readBody reads body fully. limit <= 0 means unlimited.
func readBody(body io.ReadCloser, limit int64) ([]byte, error) {
	defer body.Close()
	if limit <= 0 {
		return io.ReadAll(body)
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

var headerNewlineToSpace = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// writeResponse serializes resp as an HTTP/1.1 message for a connection that
// closes after it and flushes w. Header keys are written in sorted order with every value
// kept. Content-Length is added when the handler left it out; a
// Transfer-Encoding from the handler is dropped.
func writeResponse(w *bufio.Writer, resp *model.Response, method string) error {
	code := resp.Code
	noBody := method == http.MethodHead || (code >= 100 && code < 200) ||
		code == http.StatusNoContent || code == http.StatusNotModified

	fmt.Fprintf(w, "HTTP/1.1 %03d %s\r\n", code, headerNewlineToSpace.Replace(resp.StatusMessage()))

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hasLength := false
	for _, k := range keys {
		switch {
		case strings.EqualFold(k, "Connection"), strings.EqualFold(k, "Transfer-Encoding"):
			// the body is always written as-is, never chunked
			continue
		case strings.EqualFold(k, "Content-Length"):
			hasLength = true
		}
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "%s: %s\r\n", k, headerNewlineToSpace.Replace(v))
		}
	}
	if !hasLength && !(code >= 100 && code < 200) && code != http.StatusNoContent {
		w.WriteString("Content-Length: " + strconv.Itoa(len(resp.Body)) + "\r\n")
	}
	w.WriteString("Connection: close\r\n\r\n")

	if !noBody {
		w.Write(resp.Body)
	}
	return w.Flush()
}

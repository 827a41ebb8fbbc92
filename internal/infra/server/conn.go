package server

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	model "go_deproxy/internal/domain/model"
	"go_deproxy/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

var errNilResponse = errors.New("handler returned a nil response")

// serveConn runs the one-request protocol on conn and closes it.
func (e *Endpoint) serveConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	log := e.log.WithField("remote_addr", remote)

	if e.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(e.config.ReadTimeout))
	}
	br := bufio.NewReader(conn)

	line, err := readRequestLine(br, e.config.MaxRequestLineBytes)
	switch {
	case errors.Is(err, errLineTooLong):
		e.collector.ObserveInbound(e.name, metrics.OutcomeTooLong)
		log.WithField("limit", e.config.MaxRequestLineBytes).Warn("request line too long")
		e.reject(conn, http.StatusRequestURITooLong, log)
		return
	case err != nil && len(line) == 0 && (errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)):
		return
	case err != nil:
		e.readFailed(conn, remote, err, log)
		return
	}

	req, err := http.ReadRequest(bufio.NewReader(io.MultiReader(bytes.NewReader(line), br)))
	if err != nil {
		e.readFailed(conn, remote, err, log)
		return
	}

	body, err := readBody(req.Body, e.config.MaxBodyBytes)
	if errors.Is(err, errBodyTooLarge) {
		e.collector.ObserveInbound(e.name, metrics.OutcomeTooLarge)
		log.WithField("limit", e.config.MaxBodyBytes).Warn("request body too large")
		e.reject(conn, http.StatusRequestEntityTooLarge, log)
		return
	}
	if err != nil {
		e.readFailed(conn, remote, err, log)
		return
	}
	receivedAt := time.Now()

	inbound := model.NewRequestFromHTTP(req, body)
	handler := model.HandlerFunc(model.DefaultHandler)
	id, hasID := inbound.RequestID()
	var chain *model.MessageChain
	if hasID {
		log = log.WithField("request_id", id)
		if e.resolver != nil {
			chain = e.resolver.GetMessageChain(id)
		}
	}
	if chain != nil {
		handler = chain.Handler()
	}

	// The handler may take as long as it likes.
	_ = conn.SetReadDeadline(time.Time{})

	resp, err := invokeHandler(handler, inbound.Clone())
	e.collector.ObserveHandler(e.name, time.Since(receivedAt))
	switch {
	case err != nil:
		e.collector.ObserveInbound(e.name, metrics.OutcomeHandlerPanic)
		log.WithError(err).Error("handler failed")
		resp = errorResponse(http.StatusInternalServerError)
	case chain != nil:
		e.collector.ObserveInbound(e.name, metrics.OutcomeMatched)
	default:
		e.collector.ObserveInbound(e.name, metrics.OutcomeDefault)
	}

	out := resp.Clone()
	if hasID {
		model.SetRequestID(out.Header, id)
	}
	if chain != nil {
		chain.AddHandling(model.Handling{
			Endpoint:   e,
			Request:    inbound,
			Response:   out,
			ReceivedAt: receivedAt,
		})
	}

	if err := e.write(conn, out, inbound.Method); err != nil {
		e.writeFailed(remote, err, log)
		return
	}

	log.WithFields(logrus.Fields{
		"method": inbound.Method,
		"path":   inbound.Path,
		"code":   out.Code,
	}).Debug("request handled")
}

func invokeHandler(h model.HandlerFunc, req *model.Request) (resp *model.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	resp = h(req)
	if resp == nil {
		return nil, errNilResponse
	}
	return resp, nil
}

func (e *Endpoint) write(conn net.Conn, resp *model.Response, method string) error {
	if e.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(e.config.WriteTimeout))
	}
	return writeResponse(bufio.NewWriter(conn), resp, method)
}

// reject answers with a bare error status and closes the write side before
// draining, so the client sees the status instead of a reset.
func (e *Endpoint) reject(conn net.Conn, code int, log *logrus.Entry) {
	if err := e.write(conn, errorResponse(code), http.MethodGet); err != nil {
		log.WithError(err).Debug("failed to write error response")
		return
	}
	if tc, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, 256<<10))
}

func (e *Endpoint) readFailed(conn net.Conn, remote string, err error, log *logrus.Entry) {
	if isTimeout(err) {
		e.collector.ObserveInbound(e.name, metrics.OutcomeTimeout)
		log.Warn((&model.TimeoutError{RemoteAddr: remote, Op: "read", Err: err}).Error())
		return
	}
	e.collector.ObserveInbound(e.name, metrics.OutcomeMalformed)
	log.WithError(&model.MalformedRequestError{RemoteAddr: remote, Err: err}).Warn("malformed request")
	e.reject(conn, http.StatusBadRequest, log)
}

func (e *Endpoint) writeFailed(remote string, err error, log *logrus.Entry) {
	if isTimeout(err) {
		e.collector.ObserveInbound(e.name, metrics.OutcomeTimeout)
		log.Warn((&model.TimeoutError{RemoteAddr: remote, Op: "write", Err: err}).Error())
		return
	}
	log.WithError(err).Info("failed to write response")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func errorResponse(code int) *model.Response {
	text := http.StatusText(code)
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &model.Response{
		Code:    code,
		Message: text,
		Header:  header,
		Body:    []byte(text + "\n"),
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/metrics"
	"go_deproxy/utils"

	"github.com/sirupsen/logrus"
)

// ChainResolver maps a correlation id to the chain currently in flight for
// it. A nil result means the default handler answers.
type ChainResolver interface {
	GetMessageChain(id string) *model.MessageChain
}

// Endpoint owns one listening socket and serves one request per accepted
// connection, each on its own goroutine.
type Endpoint struct {
	name      string
	listener  net.Listener
	resolver  ChainResolver
	config    configs.ServerConfig
	collector *metrics.Collector
	log       *logrus.Entry

	mu        sync.Mutex
	conns     map[net.Conn]struct{}
	closed    bool
	closeErr  error
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ model.EndpointRef = (*Endpoint)(nil)

// NewEndpoint binds address and starts accepting immediately. A nil cfg
// means the library defaults; a nil collector disables metrics.
func NewEndpoint(name, address string, resolver ChainResolver, cfg *configs.ServerConfig, collector *metrics.Collector) (*Endpoint, error) {
	if cfg == nil {
		cfg = &configs.DefaultDeproxyConfig().Server
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, &model.BindError{Address: address, Err: err}
	}
	if name == "" {
		name = ln.Addr().String()
	}

	e := &Endpoint{
		name:      name,
		listener:  ln,
		resolver:  resolver,
		config:    *cfg,
		collector: collector,
		conns:     make(map[net.Conn]struct{}),
		log: utils.GetLogger().WithFields(logrus.Fields{
			"endpoint": name,
			"address":  ln.Addr().String(),
		}),
	}
	if e.config.MaxRequestLineBytes <= 0 {
		e.config.MaxRequestLineBytes = configs.DefaultMaxRequestLineBytes
	}

	e.wg.Add(1)
	go e.acceptLoop()

	e.log.Info("endpoint listening")
	return e, nil
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) Addr() net.Addr { return e.listener.Addr() }

// URL is the base http URL of the endpoint. Unspecified listen addresses are
// reported as loopback.
func (e *Endpoint) URL() string {
	addr, ok := e.listener.Addr().(*net.TCPAddr)
	if !ok {
		return "http://" + e.listener.Addr().String()
	}
	host := "127.0.0.1"
	if !addr.IP.IsUnspecified() {
		host = addr.IP.String()
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(addr.Port))
}

func (e *Endpoint) acceptLoop() {
	defer e.wg.Done()

	var backoff time.Duration
	for {
		conn, err := e.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			e.log.WithError(err).Warnf("accept failed; retrying in %v", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !e.track(conn) {
			_ = conn.Close()
			return
		}
		go func() {
			defer e.wg.Done()
			defer e.untrack(conn)
			e.serveConn(conn)
		}()
	}
}

// track registers conn and reserves a WaitGroup slot for its goroutine. It
// reports false once the endpoint is shutting down.
func (e *Endpoint) track(conn net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.conns[conn] = struct{}{}
	e.wg.Add(1)
	return true
}

func (e *Endpoint) untrack(conn net.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.conns, conn)
}

// Shutdown stops accepting and waits for in-flight connections. When ctx
// expires first, the remaining connections are closed and ctx.Err() is
// returned; handlers still running are not waited for. Safe to call more than
// once.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		if err := e.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			e.closeErr = err
		}
		e.log.Info("endpoint shutting down")
	})

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return e.closeErr
	case <-ctx.Done():
		e.mu.Lock()
		for conn := range e.conns {
			_ = conn.Close()
		}
		e.mu.Unlock()
		return ctx.Err()
	}
}

// Closed reports whether Shutdown has been called.
func (e *Endpoint) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

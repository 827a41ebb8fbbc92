package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/metrics"
	"go_deproxy/internal/infra/repo"
	"go_deproxy/internal/infra/server"
	"go_deproxy/utils"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserAgent is sent when the caller does not supply one.
const UserAgent = "go_deproxy"

// Deproxy issues requests through MakeRequest and serves them on its
// endpoints, correlating both sides through the Request-ID header.
type Deproxy struct {
	chains    repo.MessageChainRepoIface
	archive   repo.ArchiveRepoIface
	collector *metrics.Collector
	serverCfg configs.ServerConfig
	clientCfg configs.ClientConfig
	client    *http.Client

	endpointsMu sync.Mutex
	endpoints   []*server.Endpoint
	closed      bool
}

// NewDeproxy wires a Deproxy. archive and collector may be nil; nil configs
// fall back to the library defaults.
func NewDeproxy(chains repo.MessageChainRepoIface, archive repo.ArchiveRepoIface, serverCfg *configs.ServerConfig,
	clientCfg *configs.ClientConfig, collector *metrics.Collector) *Deproxy {
	defaults := configs.DefaultDeproxyConfig()
	if serverCfg == nil {
		serverCfg = &defaults.Server
	}
	if clientCfg == nil {
		clientCfg = &defaults.Client
	}
	if chains == nil {
		chains = repo.NewMessageChainRepo()
	}

	return &Deproxy{
		chains:    chains,
		archive:   archive,
		collector: collector,
		serverCfg: *serverCfg,
		clientCfg: *clientCfg,
		client:    newHTTPClient(*clientCfg),
	}
}

// New returns a Deproxy with default configuration, no archive and no metrics.
func New() *Deproxy {
	return NewDeproxy(nil, nil, nil, nil, nil)
}

func newHTTPClient(cfg configs.ClientConfig) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		// endpoints close every connection after one response
		DisableKeepAlives:  true,
		DisableCompression: true,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// AddEndpoint binds address and starts serving on it.
func (d *Deproxy) AddEndpoint(address string) (*server.Endpoint, error) {
	return d.AddNamedEndpoint("", address)
}

// AddNamedEndpoint is AddEndpoint with an explicit name. An empty name is
// replaced with "Deproxy Endpoint <n>".
func (d *Deproxy) AddNamedEndpoint(name, address string) (*server.Endpoint, error) {
	d.endpointsMu.Lock()
	defer d.endpointsMu.Unlock()

	if d.closed {
		return nil, model.ErrEndpointClosed
	}
	if name == "" {
		name = "Deproxy Endpoint " + strconv.Itoa(len(d.endpoints)+1)
	}

	ep, err := server.NewEndpoint(name, address, d, &d.serverCfg, d.collector)
	if err != nil {
		return nil, err
	}
	d.endpoints = append(d.endpoints, ep)
	return ep, nil
}

// Endpoints returns the endpoints in the order they were added.
func (d *Deproxy) Endpoints() []*server.Endpoint {
	d.endpointsMu.Lock()
	defer d.endpointsMu.Unlock()
	out := make([]*server.Endpoint, len(d.endpoints))
	copy(out, d.endpoints)
	return out
}

// GetMessageChain returns the chain registered under id, or nil.
func (d *Deproxy) GetMessageChain(id string) *model.MessageChain {
	return d.chains.Lookup(id)
}

// Collector is nil when metrics are disabled.
func (d *Deproxy) Collector() *metrics.Collector {
	return d.collector
}

// InFlight is the number of MakeRequest calls currently registered.
func (d *Deproxy) InFlight() int {
	return d.chains.Len()
}

// MakeRequest sends one request to url and returns the finished chain. The
// chain is registered before the request leaves and unregistered once the
// response has been read, on every path. Transport failures are returned as
// *model.RequestFailedError.
func (d *Deproxy) MakeRequest(ctx context.Context, url string, opts ...RequestOption) (*model.MessageChain, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := newRequestOptions(url)
	for _, opt := range opts {
		opt(o)
	}
	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("invalid request options: %w", err)
	}

	id := uuid.NewString()
	header := o.Header.Clone()
	model.SetRequestID(header, id)
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", UserAgent)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(o.Method), o.URL, bytes.NewReader(o.Body))
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if host := header.Get("Host"); host != "" {
		req.Host = host
	}
	header.Del("Host")
	req.Header = header
	sent := sentRequest(req, o.Body)

	log := utils.GetLogger().WithFields(logrus.Fields{
		"request_id": id,
		"method":     req.Method,
		"url":        o.URL,
	})

	chain := model.NewMessageChain(id, o.Handler)
	if err := d.chains.Register(id, chain); err != nil {
		log.WithError(err).Error("failed to register message chain")
		return nil, err
	}
	d.collector.ChainStarted()

	received, callErr := d.send(req, log)

	d.collector.ChainFinished()
	unregErr := d.chains.Unregister(id)
	if unregErr != nil {
		log.WithError(unregErr).Error("failed to unregister message chain")
	}

	if callErr != nil {
		d.collector.ObserveOutbound(metrics.ResultFailed)
		failed := &model.RequestFailedError{Method: req.Method, URL: o.URL, RequestID: id, Err: callErr}
		log.WithError(callErr).Warn("outbound request failed")
		if unregErr != nil {
			return nil, errors.Join(failed, unregErr)
		}
		return nil, failed
	}
	d.collector.ObserveOutbound(metrics.ResultOK)
	if unregErr != nil {
		return nil, unregErr
	}

	if err := chain.Finalize(sent, received); err != nil {
		return nil, err
	}

	if d.archive != nil {
		if err := d.archive.Submit(chain); err != nil {
			log.WithError(err).Warn("failed to archive message chain")
		}
	}

	log.WithFields(logrus.Fields{
		"code":      received.Code,
		"handlings": len(chain.Handlings()),
	}).Debug("request completed")
	return chain, nil
}

// send performs the outbound call, retrying transport failures up to the
// configured number of attempts. Every attempt carries the same Request-ID.
func (d *Deproxy) send(req *http.Request, log *logrus.Entry) (*model.Response, error) {
	ctx := req.Context()
	var received *model.Response

	err := retry.Do(
		func() error {
			attempt := req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return retry.Unrecoverable(err)
				}
				attempt.Body = body
			}

			res, err := d.client.Do(attempt)
			if err != nil {
				return err
			}
			received, err = model.NewResponseFromHTTP(res)
			return err
		},
		d.retryOptions(ctx, log)...,
	)
	if err != nil {
		return nil, err
	}
	return received, nil
}

func (d *Deproxy) retryOptions(ctx context.Context, log *logrus.Entry) []retry.Option {
	attempts := d.clientCfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(d.clientCfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("outbound attempt %d failed", n+1)
		}),
	}
}

// sentRequest snapshots req as it goes on the wire.
func sentRequest(req *http.Request, body []byte) *model.Request {
	header := req.Header.Clone()
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	header.Set("Host", host)
	if len(body) > 0 && header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	return &model.Request{
		Method: req.Method,
		Path:   req.URL.RequestURI(),
		Header: header,
		Body:   append([]byte(nil), body...),
	}
}

// Shutdown stops every endpoint and then the archive. Further AddEndpoint
// calls fail with model.ErrEndpointClosed.
func (d *Deproxy) Shutdown(ctx context.Context) error {
	d.endpointsMu.Lock()
	first := !d.closed
	d.closed = true
	endpoints := make([]*server.Endpoint, len(d.endpoints))
	copy(endpoints, d.endpoints)
	d.endpointsMu.Unlock()

	var errs []error
	for _, ep := range endpoints {
		if err := ep.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("endpoint %s: %w", ep.Name(), err))
		}
	}
	if first && d.archive != nil {
		if err := d.archive.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.client.CloseIdleConnections()
	return errors.Join(errs...)
}

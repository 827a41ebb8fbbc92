package deproxy_app

import (
	"context"
	"fmt"
	"io"

	"go_deproxy/internal/domain/iface"
	model "go_deproxy/internal/domain/model"
	"go_deproxy/internal/domain/services"
)

// DemoOptions names the two endpoints the demo binds.
type DemoOptions struct {
	FirstAddress  string
	SecondAddress string
}

// DemoResponse is served by the second demo endpoint.
var DemoResponse = model.CannedResponse{
	StatusCode: 601,
	Message:    "Something",
	Headers:    map[string]string{"X-Header": "Value"},
	Body:       "this is the body",
}

// RunDemo binds two endpoints, sends a default GET to the first and a GET
// answered by DemoResponse to the second, and prints both chains to w.
func RunDemo(ctx context.Context, d iface.DeproxyService, opts DemoOptions, w io.Writer) ([]*model.MessageChain, error) {
	first, err := d.AddNamedEndpoint("", opts.FirstAddress)
	if err != nil {
		return nil, err
	}
	second, err := d.AddNamedEndpoint("", opts.SecondAddress)
	if err != nil {
		return nil, err
	}

	handler, err := DemoResponse.Handler()
	if err != nil {
		return nil, err
	}

	chains := make([]*model.MessageChain, 0, 2)
	for i, call := range []struct {
		url  string
		opts []services.RequestOption
	}{
		{url: first.URL() + "/abc/123"},
		{url: second.URL() + "/abc/123", opts: []services.RequestOption{services.WithHandler(handler)}},
	} {
		chain, err := d.MakeRequest(ctx, call.url, call.opts...)
		if err != nil {
			return chains, fmt.Errorf("demo request %d: %w", i+1, err)
		}
		PrintMessageChain(w, chain, fmt.Sprintf("== request %d: GET %s", i+1, call.url))
		fmt.Fprintln(w)
		chains = append(chains, chain)
	}
	return chains, nil
}

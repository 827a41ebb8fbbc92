package deproxy_app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	model "go_deproxy/internal/domain/model"
	"go_deproxy/internal/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDemo(t *testing.T) ([]*model.MessageChain, string) {
	t.Helper()
	d := services.New()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})

	var out bytes.Buffer
	chains, err := RunDemo(context.Background(), d, DemoOptions{
		FirstAddress:  "127.0.0.1:0",
		SecondAddress: "127.0.0.1:0",
	}, &out)
	require.NoError(t, err)
	require.Len(t, chains, 2)
	return chains, out.String()
}

func TestRunDemo(t *testing.T) {
	chains, out := runDemo(t)

	assert.Equal(t, 200, chains[0].ReceivedResponse().Code)
	assert.Equal(t, 601, chains[1].ReceivedResponse().Code)
	assert.Equal(t, "Something", chains[1].ReceivedResponse().Message)

	assert.Contains(t, out, "== request 1: GET http://127.0.0.1:")
	assert.Contains(t, out, "Request-ID: "+chains[0].ID())
	assert.Contains(t, out, "    status code: 601\n    message: Something\n")
	assert.Contains(t, out, "        X-Header: Value\n")
	assert.Contains(t, out, "  Received Request (Deproxy Endpoint 2)")
	assert.Contains(t, out, "this is the body\n")
}

func TestPrintRequestLayout(t *testing.T) {
	var out bytes.Buffer
	PrintRequest(&out, &model.Request{
		Method: "GET",
		Path:   "/abc/123",
		Header: http.Header{"B": {"2"}, "A": {"1", "one"}},
		Body:   []byte("hi"),
	}, "Sent Request")

	want := strings.Join([]string{
		"Sent Request",
		"    method: GET",
		"    path: /abc/123",
		"    headers:",
		"        A: 1",
		"        A: one",
		"        B: 2",
		"    body: hi",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestPrintChainRecord(t *testing.T) {
	chains, _ := runDemo(t)
	rec := model.NewChainRecord(chains[1])

	var out bytes.Buffer
	PrintChainRecord(&out, rec, "")
	assert.Contains(t, out.String(), "Request-ID: "+chains[1].ID())
	assert.Contains(t, out.String(), "  Sent Response (Deproxy Endpoint 2)")
	assert.Contains(t, out.String(), "    status code: 601")
}

func TestExportHAR(t *testing.T) {
	chains, _ := runDemo(t)
	chain := chains[1]

	out, err := ExportHAR(chain)
	require.NoError(t, err)
	require.Len(t, out.Log.Entries, 2)

	client := out.Log.Entries[0]
	assert.Equal(t, chain.ID(), client.ID)
	assert.Equal(t, "GET", client.Request.Method)
	assert.Equal(t, 601, client.Response.Status)
	assert.Equal(t, "Something", client.Response.StatusText)

	handling := out.Log.Entries[1]
	assert.Equal(t, chain.ID()+"/handling-1", handling.ID)
	assert.Contains(t, handling.Request.URL, "/abc/123")

	var buf bytes.Buffer
	require.NoError(t, WriteHAR(&buf, chain))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "log")
}

func TestExportHARRequiresFinalizedChain(t *testing.T) {
	_, err := ExportHAR(model.NewMessageChain("open", nil))
	assert.Error(t, err)
}

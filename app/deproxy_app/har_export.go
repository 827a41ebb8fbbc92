package deproxy_app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	model "go_deproxy/internal/domain/model"

	"github.com/google/martian/v3/har"
)

// ExportHAR renders a finished chain as a HAR log. The first entry is the
// client side exchange; each handling follows as its own entry addressed to
// the endpoint that served it.
func ExportHAR(chain *model.MessageChain) (*har.HAR, error) {
	if !chain.Finalized() {
		return nil, fmt.Errorf("message chain %s is not finalized", chain.ID())
	}

	logger := har.NewLogger()
	logger.SetOption(har.BodyLogging(true), har.PostDataLogging(true))

	messages := map[string]string{}
	sent := chain.SentRequest()
	clientID := chain.ID()
	if err := record(logger, clientID, sent.Header.Get("Host"), sent, chain.ReceivedResponse()); err != nil {
		return nil, err
	}
	messages[clientID] = chain.ReceivedResponse().Message

	for i, h := range chain.Handlings() {
		id := clientID + "/handling-" + strconv.Itoa(i+1)
		host := h.Request.Header.Get("Host")
		if h.Endpoint != nil && h.Endpoint.Addr() != nil {
			host = h.Endpoint.Addr().String()
		}
		if err := record(logger, id, host, h.Request, h.Response); err != nil {
			return nil, err
		}
		messages[id] = h.Response.Message
	}

	out := logger.Export()
	// Reason phrases outside the registered codes would otherwise be lost.
	for _, entry := range out.Log.Entries {
		if msg := messages[entry.ID]; msg != "" && entry.Response != nil {
			entry.Response.StatusText = msg
		}
	}
	return out, nil
}

// WriteHAR encodes ExportHAR(chain) as indented JSON.
func WriteHAR(w io.Writer, chain *model.MessageChain) error {
	out, err := ExportHAR(chain)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func record(logger *har.Logger, id, host string, req *model.Request, resp *model.Response) error {
	if host == "" {
		host = "localhost"
	}
	hreq, err := http.NewRequest(req.Method, "http://"+host+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return fmt.Errorf("har request %s: %w", id, err)
	}
	hreq.Header = req.Header.Clone()
	if err := logger.RecordRequest(id, hreq); err != nil {
		return fmt.Errorf("har request %s: %w", id, err)
	}

	hres := &http.Response{
		Status:        strconv.Itoa(resp.Code) + " " + resp.StatusMessage(),
		StatusCode:    resp.Code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       hreq,
	}
	if err := logger.RecordResponse(id, hres); err != nil {
		return fmt.Errorf("har response %s: %w", id, err)
	}
	return nil
}

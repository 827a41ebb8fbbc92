package deproxy_app

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	model "go_deproxy/internal/domain/model"
)

// PrintRequest writes req in the indented text layout used by the CLI.
func PrintRequest(w io.Writer, req *model.Request, heading string) {
	if heading != "" {
		fmt.Fprintln(w, heading)
	}
	if req == nil {
		fmt.Fprintln(w, "    (none)")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "    method: %s\n", req.Method)
	fmt.Fprintf(w, "    path: %s\n", req.Path)
	fmt.Fprintln(w, "    headers:")
	printHeader(w, req.Header)
	fmt.Fprintf(w, "    body: %s\n", req.Body)
	fmt.Fprintln(w)
}

func PrintResponse(w io.Writer, resp *model.Response, heading string) {
	if heading != "" {
		fmt.Fprintln(w, heading)
	}
	if resp == nil {
		fmt.Fprintln(w, "    (none)")
		return
	}
	fmt.Fprintf(w, "    status code: %d\n", resp.Code)
	fmt.Fprintf(w, "    message: %s\n", resp.Message)
	fmt.Fprintln(w, "    headers:")
	printHeader(w, resp.Header)
	fmt.Fprintln(w, "    body:")
	fmt.Fprintf(w, "%s\n", resp.Body)
}

// PrintMessageChain writes the sent request, every handling in order, and the
// received response.
func PrintMessageChain(w io.Writer, chain *model.MessageChain, heading string) {
	if heading != "" {
		fmt.Fprintln(w, heading)
	}
	fmt.Fprintf(w, "Request-ID: %s\n", chain.ID())
	PrintRequest(w, chain.SentRequest(), "Sent Request")
	for _, h := range chain.Handlings() {
		endpoint := ""
		if h.Endpoint != nil {
			endpoint = " (" + h.Endpoint.Name() + ")"
		}
		PrintRequest(w, h.Request, "  Received Request"+endpoint)
		PrintResponse(w, h.Response, "  Sent Response"+endpoint)
	}
	PrintResponse(w, chain.ReceivedResponse(), "Received Response")
}

// PrintChainRecord is PrintMessageChain for an archived chain.
func PrintChainRecord(w io.Writer, rec *model.ChainRecord, heading string) {
	if heading != "" {
		fmt.Fprintln(w, heading)
	}
	fmt.Fprintf(w, "Request-ID: %s (archived %s)\n", rec.ID, rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	PrintRequest(w, requestFromRecord(rec.SentRequest), "Sent Request")
	for _, h := range rec.Handlings {
		suffix := " (" + h.Endpoint + ")"
		PrintRequest(w, requestFromRecord(h.Request), "  Received Request"+suffix)
		PrintResponse(w, responseFromRecord(h.Response), "  Sent Response"+suffix)
	}
	PrintResponse(w, responseFromRecord(rec.ReceivedResponse), "Received Response")
}

func printHeader(w io.Writer, h http.Header) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range h[k] {
			fmt.Fprintf(w, "        %s: %s\n", k, v)
		}
	}
}

func requestFromRecord(r *model.RequestRecord) *model.Request {
	if r == nil {
		return nil
	}
	return &model.Request{Method: r.Method, Path: r.Path, Header: r.Header, Body: r.Body}
}

func responseFromRecord(r *model.ResponseRecord) *model.Response {
	if r == nil {
		return nil
	}
	return &model.Response{Code: r.Code, Message: r.Message, Header: r.Header, Body: r.Body}
}

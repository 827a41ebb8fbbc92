package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CannedResponse describes a fixed (optionally templated) response that can be
// turned into a HandlerFunc. Status codes outside the registered HTTP range
// are allowed on purpose; test doubles often need them.
type CannedResponse struct {
	StatusCode   int               `json:"statusCode" yaml:"statusCode" validate:"required,min=100,max=999"`
	Message      string            `json:"message,omitempty" yaml:"message"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers"`
	Body         string            `json:"body,omitempty" yaml:"body"`
	BodyBytes    []byte            `json:"-" yaml:"-"`
	BodyBase64   string            `json:"bodyBase64,omitempty" yaml:"bodyBase64" validate:"omitempty,base64"`
	Template     bool              `json:"template,omitempty" yaml:"template"`
	TemplateData map[string]any    `json:"templateData,omitempty" yaml:"templateData"`
	Delay        time.Duration     `json:"delay,omitempty" yaml:"delay" validate:"gte=0"`
}

// MarshalJSON emits BodyBytes as base64.
func (r *CannedResponse) MarshalJSON() ([]byte, error) {
	type Alias CannedResponse
	aux := Alias(*r)

	if len(r.BodyBytes) > 0 {
		aux.BodyBase64 = base64.StdEncoding.EncodeToString(r.BodyBytes)
		aux.Body = ""
	}

	return json.Marshal(&aux)
}

// UnmarshalJSON decodes bodyBase64 into BodyBytes.
func (r *CannedResponse) UnmarshalJSON(data []byte) error {
	type Alias CannedResponse
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if aux.BodyBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(aux.BodyBase64)
		if err != nil {
			return err
		}
		r.BodyBytes = decoded
	}

	return nil
}

// Validate checks field ranges and, for templated bodies, that the template
// parses.
func (r *CannedResponse) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid canned response: %w", err)
	}
	if r.Template {
		if _, err := template.New("response").Parse(r.Body); err != nil {
			return fmt.Errorf("invalid canned response template: %w", err)
		}
	}
	return nil
}

// Handler validates r and returns a HandlerFunc serving it. Templates are
// parsed once here and executed per request with .Request and the entries of
// TemplateData in scope.
func (r *CannedResponse) Handler() (HandlerFunc, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var tpl *template.Template
	if r.Template && len(r.BodyBytes) == 0 && r.BodyBase64 == "" {
		tpl = template.Must(template.New("response").Parse(r.Body))
	}

	staticBody, err := r.staticBody()
	if err != nil {
		return nil, err
	}
	canned := *r

	return func(req *Request) *Response {
		if canned.Delay > 0 {
			time.Sleep(canned.Delay)
		}

		resp := &Response{
			Code:    canned.StatusCode,
			Message: canned.Message,
			Header:  http.Header{},
			Body:    bytes.Clone(staticBody),
		}
		for k, v := range canned.Headers {
			resp.Header.Add(k, v)
		}

		if tpl != nil {
			var buf bytes.Buffer
			if err := tpl.Execute(&buf, mergeData(canned.TemplateData, map[string]any{"Request": newTemplateRequest(req)})); err != nil {
				return &Response{
					Code:    http.StatusInternalServerError,
					Message: "Internal Server Error",
					Header:  http.Header{},
					Body:    []byte(fmt.Sprintf("template render failed: %v", err)),
				}
			}
			resp.Body = buf.Bytes()
		}
		return resp
	}, nil
}

func (r *CannedResponse) staticBody() ([]byte, error) {
	if len(r.BodyBytes) > 0 {
		return r.BodyBytes, nil
	}
	if r.BodyBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(r.BodyBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid bodyBase64: %w", err)
		}
		return decoded, nil
	}
	return []byte(r.Body), nil
}

// templateRequest is the view of the inbound request exposed to templates.
type templateRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
	JSON   map[string]any
}

func newTemplateRequest(req *Request) templateRequest {
	v := templateRequest{}
	if req == nil {
		return v
	}
	v.Method = req.Method
	v.Path = req.Path
	v.Header = req.Header
	v.Body = string(req.Body)
	if len(req.Body) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(req.Body, &decoded); err == nil {
			v.JSON = decoded
		}
	}
	return v
}

func mergeData(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

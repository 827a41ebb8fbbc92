package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// ChainRecord is the serializable snapshot of a finalized MessageChain kept by
// the archive. Handler functions and endpoint handles are reduced to names.
type ChainRecord struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Method           string          `gorm:"type:varchar(16)" json:"method"`
	Path             string          `gorm:"type:varchar(2048)" json:"path"`
	ResponseCode     int             `gorm:"index" json:"responseCode"`
	HandlingCount    int             `json:"handlingCount"`
	SentRequest      *RequestRecord  `gorm:"type:json" json:"sentRequest"`
	ReceivedResponse *ResponseRecord `gorm:"type:json" json:"receivedResponse"`
	Handlings        HandlingRecords `gorm:"type:json" json:"handlings"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName pins the gorm table name.
func (ChainRecord) TableName() string { return "message_chain_records" }

type RequestRecord struct {
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
}

type ResponseRecord struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Header  http.Header `json:"header,omitempty"`
	Body    []byte      `json:"body,omitempty"`
}

type HandlingRecord struct {
	Endpoint     string          `json:"endpoint"`
	EndpointAddr string          `json:"endpointAddr"`
	Request      *RequestRecord  `json:"request"`
	Response     *ResponseRecord `json:"response"`
	ReceivedAt   time.Time       `json:"receivedAt"`
}

type HandlingRecords []HandlingRecord

// NewChainRecord snapshots a finalized chain.
func NewChainRecord(chain *MessageChain) *ChainRecord {
	rec := &ChainRecord{
		ID:               chain.ID(),
		SentRequest:      newRequestRecord(chain.SentRequest()),
		ReceivedResponse: newResponseRecord(chain.ReceivedResponse()),
		CreatedAt:        time.Now().UTC(),
	}
	if rec.SentRequest != nil {
		rec.Method = rec.SentRequest.Method
		rec.Path = rec.SentRequest.Path
	}
	if rec.ReceivedResponse != nil {
		rec.ResponseCode = rec.ReceivedResponse.Code
	}

	handlings := chain.Handlings()
	rec.HandlingCount = len(handlings)
	rec.Handlings = make(HandlingRecords, 0, len(handlings))
	for _, h := range handlings {
		hr := HandlingRecord{
			Request:    newRequestRecord(h.Request),
			Response:   newResponseRecord(h.Response),
			ReceivedAt: h.ReceivedAt,
		}
		if h.Endpoint != nil {
			hr.Endpoint = h.Endpoint.Name()
			if addr := h.Endpoint.Addr(); addr != nil {
				hr.EndpointAddr = addr.String()
			}
		}
		rec.Handlings = append(rec.Handlings, hr)
	}
	return rec
}

func newRequestRecord(r *Request) *RequestRecord {
	if r == nil {
		return nil
	}
	return &RequestRecord{Method: r.Method, Path: r.Path, Header: r.Header, Body: r.Body}
}

func newResponseRecord(r *Response) *ResponseRecord {
	if r == nil {
		return nil
	}
	return &ResponseRecord{Code: r.Code, Message: r.Message, Header: r.Header, Body: r.Body}
}

// Scan and Value let gorm store the nested records as JSON columns.

func (r *RequestRecord) Scan(value interface{}) error { return scanJSON(value, r) }

func (r RequestRecord) Value() (driver.Value, error) { return json.Marshal(r) }

func (r *ResponseRecord) Scan(value interface{}) error { return scanJSON(value, r) }

func (r ResponseRecord) Value() (driver.Value, error) { return json.Marshal(r) }

func (h *HandlingRecords) Scan(value interface{}) error { return scanJSON(value, h) }

func (h HandlingRecords) Value() (driver.Value, error) { return json.Marshal(h) }

func scanJSON(value interface{}, dst any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported json column type")
	}
}

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyFinalized is returned by MessageChain.Finalize on a second call.
	ErrAlreadyFinalized = errors.New("message chain already finalized")
	// ErrEndpointClosed is returned when adding to or serving from a stopped
	// endpoint.
	ErrEndpointClosed = errors.New("endpoint closed")
)

// BindError means an endpoint could not acquire its address.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// DuplicateIDError is a registry invariant violation: the id is already live.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("request id %s is already registered", e.ID)
}

// NotFoundError is a registry invariant violation: the id is not live.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("request id %s is not registered", e.ID)
}

// MalformedRequestError describes an inbound request that could not be parsed.
type MalformedRequestError struct {
	RemoteAddr string
	Err        error
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed request from %s: %v", e.RemoteAddr, e.Err)
}

func (e *MalformedRequestError) Unwrap() error { return e.Err }

// TimeoutError is reported when a connection read or write deadline expires.
type TimeoutError struct {
	RemoteAddr string
	Op         string
	Err        error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out for %s: %v", e.Op, e.RemoteAddr, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// RequestFailedError means the outbound call of MakeRequest did not complete.
type RequestFailedError struct {
	Method    string
	URL       string
	RequestID string
	Err       error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s %s (request id %s) failed: %v", e.Method, e.URL, e.RequestID, e.Err)
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

package model

import (
	"sync"
)

// MessageChain records everything that happened for one MakeRequest call: the
// request that was sent, every Handling an endpoint produced for its
// correlation id, and the response the client finally received.
//
// Handlings may be appended concurrently by any number of endpoints; the
// sent/received pair is written once by the orchestrator after the id has
// left the registry.
type MessageChain struct {
	id      string
	handler HandlerFunc

	mu               sync.Mutex
	handlings        []Handling
	sentRequest      *Request
	receivedResponse *Response
	finalized        bool
}

// NewMessageChain returns an empty chain. A nil handler means DefaultHandler.
func NewMessageChain(id string, handler HandlerFunc) *MessageChain {
	if handler == nil {
		handler = DefaultHandler
	}
	return &MessageChain{
		id:      id,
		handler: handler,
	}
}

func (c *MessageChain) ID() string { return c.id }

// Handler is the function endpoints run for requests carrying this chain's id.
func (c *MessageChain) Handler() HandlerFunc { return c.handler }

// AddHandling appends h in arrival order.
func (c *MessageChain) AddHandling(h Handling) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlings = append(c.handlings, h)
}

// Handlings returns a copy of the recorded handlings.
func (c *MessageChain) Handlings() []Handling {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Handling, len(c.handlings))
	copy(out, c.handlings)
	return out
}

// Finalize stores the request that went out and the response that came back.
func (c *MessageChain) Finalize(sent *Request, received *Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return ErrAlreadyFinalized
	}
	c.sentRequest = sent
	c.receivedResponse = received
	c.finalized = true
	return nil
}

func (c *MessageChain) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

// SentRequest is nil until Finalize.
func (c *MessageChain) SentRequest() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sentRequest
}

// ReceivedResponse is nil until Finalize.
func (c *MessageChain) ReceivedResponse() *Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receivedResponse
}

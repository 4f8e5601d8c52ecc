// Package client runs the per-call pipeline: encode the arguments, hand the
// body to a transport adapter, decode the envelope that comes back.
//
// The client itself performs no blocking I/O and no retries. Transport
// concurrency, timeouts and retry policy all belong to the adapter and the
// calling dispatch loop.
package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/internal/logging"
	"github.com/mark3labs/botapigen/wire"
)

// Transport is the boundary to whatever actually performs the call. Send
// receives an encoded request and returns the raw response envelope bytes.
// Returning an error means the call never completed; the client reports it
// as a transport failure, which is always safe to retry.
type Transport interface {
	Send(ctx context.Context, req *wire.EncodedRequest) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *wire.EncodedRequest) ([]byte, error)

func (f TransportFunc) Send(ctx context.Context, req *wire.EncodedRequest) ([]byte, error) {
	return f(ctx, req)
}

// Client invokes methods from an immutable binding set over a transport.
// It is safe for unbounded concurrent use: the bindings are read-only and
// every call builds fresh values.
type Client struct {
	bindings  *bind.Bindings
	transport Transport
	log       *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger overrides the process logger for this client.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a Client from generated bindings and a transport adapter.
func New(bindings *bind.Bindings, transport Transport, opts ...ClientOption) (*Client, error) {
	if bindings == nil {
		return nil, fmt.Errorf("client: nil bindings")
	}
	if transport == nil {
		return nil, fmt.Errorf("client: nil transport")
	}
	c := &Client{bindings: bindings, transport: transport, log: logging.L()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Bindings exposes the binding set, e.g. for introspection by emitted code.
func (c *Client) Bindings() *bind.Bindings { return c.bindings }

// Invoke encodes args for the named method, sends the request through the
// transport, and decodes the response envelope. Argument errors surface
// before any transport activity; transport errors come back as retryable
// TransportFailure values; decode mismatches are hard failures logged
// loudly, since they mean the compiled bindings disagree with the live API.
func (c *Client) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	m := c.bindings.Method(method)
	if m == nil {
		return nil, fmt.Errorf("client: unknown method %q", method)
	}

	req, err := wire.Encode(m, args)
	if err != nil {
		return nil, err
	}

	raw, err := c.transport.Send(ctx, req)
	if err != nil {
		c.log.Debug("transport failure",
			zap.String("method", method),
			zap.Error(err))
		return nil, wire.NormalizeTransport(err)
	}

	v, err := wire.Decode(m, raw)
	if err != nil {
		if wire.IsShapeMismatch(err) {
			c.log.Error("response shape mismatch; bindings disagree with live API",
				zap.String("method", method),
				zap.Error(err))
		}
		return nil, err
	}
	return v, nil
}

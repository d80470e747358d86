// Package relay delivers one templated message through a third-party relay.
package relay

import "context"

// Request is a single relay call. Params are the flattened template parameters.
type Request struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Params     map[string]string
}

// Response carries the relay's status and body text. Status 200 means delivered.
type Response struct {
	Status int
	Text   string
}

// OK reports whether the relay accepted the message.
func (r *Response) OK() bool {
	return r != nil && r.Status == 200
}

// Transport is the port the dispatcher sends through. Non-success statuses are
// returned as a Response; only failures to reach the relay are errors.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

func (f TransportFunc) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

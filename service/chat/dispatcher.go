package chat

import (
	"MeetChat/tools/errs"
)

// Handler processes one inbound frame kind. Handlers for a single connection
// run sequentially in the read loop (frames stay in arrival order); handlers
// across connections race and must only touch shared state through the
// registry and the store.
type Handler interface {
	Kind() Kind
	Handle(ctx *Context, f *Frame, c *Client) error
}

// Context carries the gateway into handlers.
type Context struct {
	GW *Gateway
}

type Dispatcher struct {
	handlers map[Kind]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Kind()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, f *Frame, c *Client) error {
	h, ok := d.handlers[f.Kind]
	if !ok {
		return errs.ErrProtocol.WrapMsg("no handler for type " + string(f.Kind))
	}
	return h.Handle(ctx, f, c)
}

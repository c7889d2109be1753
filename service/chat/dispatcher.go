package chat

import (
	"fmt"
)

// Dispatcher routes inbound frames to the handler registered for their type.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a handler; registration happens at wiring time, before the
// server accepts connections, so no locking is needed.
func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, env *Envelope, c *Client) error {
	h, ok := d.handlers[env.Type]
	if !ok {
		return fmt.Errorf("no handler for type=%q", env.Type)
	}
	return h.Handle(ctx, env, c)
}

func (d *Dispatcher) GetHandler(frameType string) Handler {
	return d.handlers[frameType]
}

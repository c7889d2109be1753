package handlers

import (
	"NewsWire/service/chat"
)

// PingHandler answers application-level pings. Transport keepalive runs on
// websocket control frames; this exists for clients that cannot observe
// those (some browser stacks).
type PingHandler struct{}

func NewPingHandler() chat.Handler { return &PingHandler{} }

func (h *PingHandler) Type() string { return chat.TypePing }

func (h *PingHandler) Handle(_ *chat.Context, _ *chat.Envelope, c *chat.Client) error {
	c.Touch()
	if payload, err := chat.BuildPong().Encode(); err == nil {
		c.Enqueue(payload)
	}
	return nil
}

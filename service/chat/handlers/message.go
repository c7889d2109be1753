package handlers

import (
	"github.com/pkg/errors"

	"NewsWire/logger"
	"NewsWire/service/chat"
)

// MessageHandler routes inbound DM frames. Frames arriving on the socket
// path bypass the REST persist-then-notify flow, so the handler also feeds
// the persistence sink before pushing live.
type MessageHandler struct{}

func NewMessageHandler() chat.Handler { return &MessageHandler{} }

func (h *MessageHandler) Type() string { return chat.TypeMessage }

func (h *MessageHandler) Handle(ctx *chat.Context, env *chat.Envelope, c *chat.Client) error {
	if env.ReceiverID == "" {
		return errors.New("message frame without receiverId")
	}

	if sink := ctx.S.SinkOrNil(); sink != nil {
		if payload, err := env.Encode(); err == nil {
			if err := sink.Publish(env.SenderID, payload); err != nil {
				// Persistence sink is best-effort from the gateway's side.
				logger.Warnf("[message] sink publish trace=%s err=%v", env.TraceID, err)
			}
		}
	}

	return ctx.S.Router().Deliver(env)
}

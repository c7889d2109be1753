package natsx

import "context"

// NatsxMessage is the unified inbound message shape.
type NatsxMessage struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// NatsxHandler processes one message.
type NatsxHandler func(ctx context.Context, msg NatsxMessage) error

// NatsxMiddleware wraps handlers (logging, metrics, dedup).
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain applies middlewares outermost-first.
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

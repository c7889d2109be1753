package relay

import (
	"context"

	"NewsWire/logger"
	"NewsWire/service/chat"
	"NewsWire/service/natsx"
)

const subjectPrefix = "gw.relay."

// GatewayRelay hands envelopes between gateway nodes over NATS. Each node
// subscribes to its own subject; when the presence mirror says a recipient
// lives on a sibling, the router publishes the serialized envelope there.
// Relayed envelopes are delivered locally only, so they can never loop.
type GatewayRelay struct {
	gwID string
	nm   *natsx.NatsManager
}

func New(gwID string, nm *natsx.NatsManager) *GatewayRelay {
	return &GatewayRelay{gwID: gwID, nm: nm}
}

// Publish implements chat.RelayPublisher.
func (r *GatewayRelay) Publish(gatewayID string, payload []byte) error {
	return r.nm.Publish(subjectPrefix+gatewayID, payload, map[string]string{
		"X-Origin-Gateway": r.gwID,
	})
}

// Listen subscribes to this node's subject and feeds arriving envelopes to
// the router's local-only path.
func (r *GatewayRelay) Listen(router *chat.Router) error {
	return r.nm.Subscribe(subjectPrefix+r.gwID, "", func(_ context.Context, msg natsx.NatsxMessage) error {
		env, err := chat.ParseEnvelope(msg.Data)
		if err != nil {
			logger.Warnf("[relay] bad envelope from %s: %v", msg.Header["X-Origin-Gateway"], err)
			return nil
		}
		if err := router.DeliverRelayed(env); err != nil {
			logger.Warnf("[relay] deliver trace=%s err=%v", env.TraceID, err)
		}
		return nil
	})
}

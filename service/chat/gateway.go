package chat

import (
	"github.com/google/uuid"

	"NewsWire/logger"
)

// PersistedMessage is the record shape the CRUD layer hands over after a
// direct-message row is durably written. The gateway performs no validation
// or persistence of its own; that already happened upstream.
type PersistedMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"createdAt"`
	Read       bool   `json:"read"`
}

// RecentLog optionally records delivered messages into a short-lived cache
// (conversation stream) for reconnect backfill. Best-effort.
type RecentLog interface {
	Append(senderID, receiverID string, payload []byte) error
}

// Gateway is the persist-then-notify seam: the excluded persistence layer
// calls NotifyLive immediately after the write commits, and the gateway
// attempts a best-effort live push. It never reports failure: live delivery
// is advisory, the durable row is the source of truth.
type Gateway struct {
	router *Router
	recent RecentLog // nil => disabled
}

func NewGateway(router *Router) *Gateway {
	return &Gateway{router: router}
}

func (g *Gateway) WithRecentLog(recent RecentLog) *Gateway {
	g.recent = recent
	return g
}

// NotifyLive translates the persisted record into a wire envelope and routes
// it to both parties' live connections.
func (g *Gateway) NotifyLive(rec PersistedMessage) {
	env := &Envelope{
		Type:       TypeMessage,
		ID:         rec.ID,
		TraceID:    uuid.NewString(),
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		Content:    rec.Content,
		CreatedAt:  rec.CreatedAt,
		Read:       rec.Read,
	}
	if err := g.router.Deliver(env); err != nil {
		// Only addressing violations land here; the row is already durable,
		// so this is log-and-move-on by contract.
		logger.Warnf("[gateway] notify skipped id=%s err=%v", rec.ID, err)
		return
	}
	if g.recent != nil {
		if payload, err := env.Encode(); err == nil {
			if err := g.recent.Append(rec.SenderID, rec.ReceiverID, payload); err != nil {
				logger.Debugf("[gateway] recent log append err=%v", err)
			}
		}
	}
}

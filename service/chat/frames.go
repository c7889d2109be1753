package chat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Envelope types carried in the "type" discriminator.
const (
	TypeMessage   = "message"
	TypeConnected = "connected"
	TypePing      = "ping"
	TypePong      = "pong"
)

// Envelope is the JSON wire unit exchanged with clients. A frame carrying a
// receiverId is a deliverable direct message; "connected" is reserved for the
// server->client handshake ack.
type Envelope struct {
	Type       string `json:"type,omitempty"`
	ID         string `json:"id,omitempty"`
	TraceID    string `json:"traceId,omitempty"`
	SenderID   string `json:"senderId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	UserID     string `json:"userId,omitempty"` // lifecycle frames only
	Content    string `json:"content,omitempty"`
	CreatedAt  int64  `json:"createdAt,omitempty"` // unix millis
	Read       bool   `json:"read,omitempty"`
}

// ParseEnvelope decodes a raw inbound frame. Unknown fields are ignored; a
// frame with a receiverId but no type is normalized to a plain message.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if env.Type == "" && env.ReceiverID != "" {
		env.Type = TypeMessage
	}
	return env, nil
}

// Validate enforces the routing invariant: both parties must be addressable.
func (e *Envelope) Validate() error {
	if e.SenderID == "" {
		return errors.New("empty senderId")
	}
	if e.ReceiverID == "" {
		return errors.New("empty receiverId")
	}
	return nil
}

// Encode serializes the envelope once; every live connection receives the
// identical bytes.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// BuildConnectedAck is pushed down a freshly registered connection only.
func BuildConnectedAck(userID string) *Envelope {
	return &Envelope{
		Type:      TypeConnected,
		UserID:    userID,
		CreatedAt: time.Now().UnixMilli(),
	}
}

func BuildPong() *Envelope {
	return &Envelope{Type: TypePong, CreatedAt: time.Now().UnixMilli()}
}

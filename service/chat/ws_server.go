package chat

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"NewsWire/logger"
	"NewsWire/tools/errs"
	"NewsWire/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway sits behind the app's edge; origin policy is enforced there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS runs the full connection state machine: handshake, identity
// extraction, registration, read loop, teardown. An unidentified connection
// is rejected with an application close code and is never registered.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	user, cerr := s.resolveIdentity(c.Request)
	if cerr != nil {
		deadline := time.Now().Add(s.conf.WriteWait)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(cerr.CloseCode(), cerr.Msg), deadline)
		_ = ws.Close()
		logger.Infof("[ws] rejected handshake from %s: %s", c.ClientIP(), cerr.Msg)
		return
	}

	client := NewClient(ids.GenerateString(), user, ws, s.conf.SendQueue)
	s.reg.Register(user, client)
	s.mirrorOnline(user)
	logger.Infof("[ws] connected user=%s conn=%s devices=%d", user, client.ConnID, s.reg.DeviceCount(user))

	go client.writePump(s.conf.WriteWait, s.conf.PingPeriod)

	// Readiness ack, down this connection only.
	if ack, aerr := BuildConnectedAck(user).Encode(); aerr == nil {
		client.Enqueue(ack)
	}

	s.readLoop(client)

	// Unregister before finalizing teardown; Closed is terminal, a new
	// handshake builds a brand-new client.
	s.dropClient(user, client)
	logger.Infof("[ws] closed user=%s conn=%s", user, client.ConnID)
}

// resolveIdentity extracts the connecting identity from request metadata:
// a plain `userId` query parameter, or a signed `token` when the token
// credential is enabled. Hard precondition: no identity, no session.
func (s *Server) resolveIdentity(r *http.Request) (string, *errs.CodeError) {
	q := r.URL.Query()
	if user := q.Get("userId"); user != "" {
		return user, nil
	}
	if token := q.Get("token"); token != "" && s.identityFromToken != nil {
		user, err := s.identityFromToken(token)
		if err != nil || user == "" {
			return "", &errs.ErrTokenInvalid
		}
		return user, nil
	}
	return "", &errs.ErrUnauthenticated
}

// readLoop reads frames until the transport dies. A single malformed frame
// is logged and dropped, never fatal to the session; frames are dispatched
// synchronously so per-connection FIFO order is preserved.
func (s *Server) readLoop(client *Client) {
	ws := client.WS
	ws.SetReadLimit(s.conf.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		client.Touch()
		s.mirrorRenew(client.UserID)
		return ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		client.Touch()

		env, perr := ParseEnvelope(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		// The connection's authenticated identity is authoritative for the
		// sender; clients cannot speak for other users.
		env.SenderID = client.UserID
		if env.TraceID == "" {
			env.TraceID = uuid.NewString()
		}

		h := s.disp.GetHandler(env.Type)
		if h == nil {
			logger.Infof("[ws] no handler type=%q conn=%s", env.Type, client.ConnID)
			continue
		}
		if herr := h.Handle(&Context{S: s}, env, client); herr != nil {
			logger.Warnf("[ws] handler type=%q conn=%s err=%v", env.Type, client.ConnID, herr)
			continue
		}
	}
}

func (s *Server) mirrorOnline(user string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Online(user, s.gwID, s.conf.PresenceTTL); err != nil {
		logger.Debugf("[presence] mirror online user=%s err=%v", user, err)
	}
}

func (s *Server) mirrorRenew(user string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Renew(user, s.gwID, s.conf.PresenceTTL); err != nil {
		logger.Debugf("[presence] mirror renew user=%s err=%v", user, err)
	}
}

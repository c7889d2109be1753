package chat

import (
	"sync"
	"time"

	"NewsWire/logger"
)

// Sink receives every well-formed inbound DM frame from the socket path so
// the external persistence layer can store it. Implementations must be
// non-blocking; publish failures never affect delivery.
type Sink interface {
	Publish(key string, payload []byte) error
}

// PresenceMirror mirrors register/unregister into shared storage so sibling
// gateways and the CRUD layer can see presence out of process. All calls are
// best-effort.
type PresenceMirror interface {
	Online(user, gatewayID string, ttl time.Duration) error
	Renew(user, gatewayID string, ttl time.Duration) error
	Offline(user string) error
}

// ServerConf tunes per-connection transport behavior.
type ServerConf struct {
	WriteWait    time.Duration // per-write deadline
	PongWait     time.Duration // read deadline renewed by pongs
	PingPeriod   time.Duration // must be < PongWait
	MaxFrameSize int64
	SendQueue    int // per-connection outbound buffer

	SweepEvery   time.Duration // registry janitor period
	HeartbeatTTL time.Duration // reap connections silent for this long
	PresenceTTL  time.Duration // mirror key TTL
}

func (c *ServerConf) norm() {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = 1 << 20
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 30 * time.Second
	}
	if c.HeartbeatTTL <= 0 {
		c.HeartbeatTTL = 2 * c.PongWait
	}
	if c.PresenceTTL <= 0 {
		c.PresenceTTL = 2 * c.PongWait
	}
}

// Server owns the transport: it accepts handshakes, authenticates them,
// registers connections, and is the only component that closes handles.
type Server struct {
	gwID string
	conf ServerConf

	reg      *Registry
	presence *PresenceTracker
	router   *Router
	disp     *Dispatcher

	sink   Sink           // nil => persistence sink disabled
	mirror PresenceMirror // nil => mirror disabled

	identityFromToken func(token string) (string, error) // nil => token credential disabled

	stopOnce sync.Once
	stopCh   chan struct{}
}

type ServerOpt func(*Server)

func WithSink(sink Sink) ServerOpt {
	return func(s *Server) { s.sink = sink }
}

func WithPresenceMirror(m PresenceMirror) ServerOpt {
	return func(s *Server) { s.mirror = m }
}

// WithTokenCredential accepts a `token` query parameter as the handshake
// credential, resolved to an identity by fn.
func WithTokenCredential(fn func(token string) (string, error)) ServerOpt {
	return func(s *Server) { s.identityFromToken = fn }
}

// WithRouterOpts forwards options to the router built by NewServer.
func WithRouterOpts(opts ...RouterOpt) ServerOpt {
	return func(s *Server) {
		for _, opt := range opts {
			opt(s.router)
		}
	}
}

func NewServer(gwID string, conf ServerConf, opts ...ServerOpt) *Server {
	conf.norm()
	s := &Server{
		gwID:   gwID,
		conf:   conf,
		reg:    NewRegistry(),
		disp:   NewDispatcher(),
		stopCh: make(chan struct{}),
	}
	s.presence = NewPresenceTracker(s.reg)
	s.router = NewRouter(s.reg, gwID, s.dropClient)
	for _, opt := range opts {
		opt(s)
	}
	go s.sweeper()
	return s
}

func (s *Server) GwID() string               { return s.gwID }
func (s *Server) Registry() *Registry        { return s.reg }
func (s *Server) Presence() *PresenceTracker { return s.presence }
func (s *Server) Router() *Router            { return s.router }
func (s *Server) Disp() *Dispatcher          { return s.disp }
func (s *Server) SinkOrNil() Sink            { return s.sink }
func (s *Server) Conf() ServerConf           { return s.conf }

// dropClient unregisters and closes one connection. Used by the transport on
// read-loop exit and by the router when a push fails (self-healing).
func (s *Server) dropClient(user string, c *Client) {
	s.reg.Unregister(user, c)
	if s.mirror != nil && !s.reg.IsOnline(user) {
		if err := s.mirror.Offline(user); err != nil {
			logger.Debugf("[presence] mirror offline user=%s err=%v", user, err)
		}
	}
	c.Close()
}

// sweeper reaps connections whose heartbeat lapsed, so a leaked handle whose
// close event never fired cannot accumulate in the registry.
func (s *Server) sweeper() {
	t := time.NewTicker(s.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			var stale []pushTarget
			s.reg.Range(func(user string, c *Client) bool {
				if c.Closed() || c.HeartbeatAge() > s.conf.HeartbeatTTL {
					stale = append(stale, pushTarget{user, c})
				}
				return true
			})
			for _, p := range stale {
				logger.Infof("[sweep] reaping conn=%s user=%s age=%v", p.c.ConnID, p.user, p.c.HeartbeatAge())
				s.dropClient(p.user, p.c)
			}
		}
	}
}

// Close stops the janitor and tears down every live connection.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	var all []pushTarget
	s.reg.Range(func(user string, c *Client) bool {
		all = append(all, pushTarget{user, c})
		return true
	})
	for _, p := range all {
		s.dropClient(p.user, p.c)
	}
	logger.Infof("[server] closed, dropped %d connections", len(all))
}

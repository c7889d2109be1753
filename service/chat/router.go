package chat

import (
	"time"

	"NewsWire/logger"
)

// DropFunc reports a dead or saturated connection back to the transport
// owner, which unregisters and closes it. The router never closes handles
// itself.
type DropFunc func(user string, c *Client)

// RemoteLookup resolves which gateway node a user is attached to, via the
// presence mirror. ok is false when the user is nowhere online.
type RemoteLookup func(user string) (gatewayID string, ok bool)

// RelayPublisher ships a serialized envelope to a sibling gateway node.
type RelayPublisher interface {
	Publish(gatewayID string, payload []byte) error
}

// UnreadCounter records a missed live push so the transitional polling
// endpoint can report it. Best-effort.
type UnreadCounter interface {
	Incr(user string) error
}

// Router resolves an envelope's parties against the registry and pushes the
// serialized payload to every live connection of both: the recipient gets
// the message, and the sender's other tabs receive a mirror so multi-device
// clients stay in sync. Live push is best-effort; a recipient with no live
// connections is a silent no-op because the message was already durably
// persisted before delivery was requested.
type Router struct {
	reg  *Registry
	gwID string
	drop DropFunc

	fan *Fanout

	// optional collaborators, nil when the feature is disabled
	lookup RemoteLookup
	relay  RelayPublisher
	unread UnreadCounter
}

type RouterOpt func(*Router)

func WithRelay(lookup RemoteLookup, relay RelayPublisher) RouterOpt {
	return func(rt *Router) {
		rt.lookup = lookup
		rt.relay = relay
	}
}

func WithUnreadCounter(u UnreadCounter) RouterOpt {
	return func(rt *Router) { rt.unread = u }
}

func NewRouter(reg *Registry, gwID string, drop DropFunc, opts ...RouterOpt) *Router {
	rt := &Router{
		reg:  reg,
		gwID: gwID,
		drop: drop,
		fan:  NewFanout(4, 1024),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

type pushTarget struct {
	user string
	c    *Client
}

// Deliver pushes env to every live connection of the recipient and of the
// sender. Individual push failures never abort the remaining pushes; failed
// connections are reported for unregistration. Returns an error only for an
// envelope violating the addressing invariant.
func (rt *Router) Deliver(env *Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	if env.CreatedAt == 0 {
		env.CreatedAt = time.Now().UnixMilli()
	}
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	recipients := rt.reg.ConnectionsFor(env.ReceiverID)
	targets := rt.targets(env)

	rt.push(targets, payload)

	if len(recipients) == 0 {
		// Offline recipient: the persisted row will surface on next poll or
		// reconnect. If a sibling gateway holds them, hand the push over.
		if rt.relayTo(env.ReceiverID, payload) {
			return nil
		}
		if rt.unread != nil {
			if err := rt.unread.Incr(env.ReceiverID); err != nil {
				logger.Debugf("[router] unread incr user=%s err=%v", env.ReceiverID, err)
			}
		}
	}
	return nil
}

// DeliverRelayed handles an envelope that arrived from a sibling gateway:
// local push only, fanned out on the worker pool so the relay consumer never
// blocks on a wide connection set. Never re-relays.
func (rt *Router) DeliverRelayed(env *Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	payload, err := env.Encode()
	if err != nil {
		return err
	}
	rt.fan.Broadcast(rt.targets(env), payload, rt.pushOne)
	return nil
}

// targets is the union of both parties' connections, de-duplicated by
// connection ID so a self-addressed envelope passes through without a
// double push.
func (rt *Router) targets(env *Envelope) []pushTarget {
	recipients := rt.reg.ConnectionsFor(env.ReceiverID)
	out := make([]pushTarget, 0, len(recipients)+2)
	seen := make(map[string]bool, len(recipients)+2)
	for _, c := range recipients {
		seen[c.ConnID] = true
		out = append(out, pushTarget{env.ReceiverID, c})
	}
	if env.SenderID != env.ReceiverID {
		for _, c := range rt.reg.ConnectionsFor(env.SenderID) {
			if !seen[c.ConnID] {
				seen[c.ConnID] = true
				out = append(out, pushTarget{env.SenderID, c})
			}
		}
	}
	return out
}

func (rt *Router) push(targets []pushTarget, payload []byte) {
	for _, t := range targets {
		rt.pushOne(t, payload)
	}
}

func (rt *Router) pushOne(t pushTarget, payload []byte) {
	if !t.c.Enqueue(payload) {
		logger.Infof("[router] drop dead conn=%s user=%s", t.c.ConnID, t.user)
		rt.drop(t.user, t.c)
	}
}

func (rt *Router) relayTo(user string, payload []byte) bool {
	if rt.lookup == nil || rt.relay == nil {
		return false
	}
	gw, ok := rt.lookup(user)
	if !ok || gw == "" || gw == rt.gwID {
		return false
	}
	if err := rt.relay.Publish(gw, payload); err != nil {
		logger.Warnf("[router] relay to %s failed user=%s err=%v", gw, user, err)
		return false
	}
	return true
}

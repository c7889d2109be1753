package chat

import (
	"bytes"
	"testing"
	"time"
)

// drain pops every queued payload off a client's send queue.
func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case p := <-c.Send:
			out = append(out, p)
		default:
			return out
		}
	}
}

func newTestRouter(reg *Registry, opts ...RouterOpt) (*Router, *[]string) {
	dropped := &[]string{}
	rt := NewRouter(reg, "gw-test", func(user string, c *Client) {
		*dropped = append(*dropped, c.ConnID)
		reg.Unregister(user, c)
		c.Close()
	}, opts...)
	return rt, dropped
}

func TestDeliverMirrorsToSender(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)

	a1 := NewClient("a1", "alice", nil, 8)
	a2 := NewClient("a2", "alice", nil, 8)
	b1 := NewClient("b1", "bob", nil, 8)
	reg.Register("alice", a1)
	reg.Register("alice", a2)
	reg.Register("bob", b1)

	env := &Envelope{Type: TypeMessage, SenderID: "bob", ReceiverID: "alice", Content: "hey"}
	if err := rt.Deliver(env); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	pa1, pa2, pb1 := drain(a1), drain(a2), drain(b1)
	if len(pa1) != 1 || len(pa2) != 1 {
		t.Fatalf("recipient pushes = %d,%d, want 1,1", len(pa1), len(pa2))
	}
	if len(pb1) != 1 {
		t.Fatalf("sender mirror pushes = %d, want 1", len(pb1))
	}
	// every connection receives the identical serialized bytes
	if !bytes.Equal(pa1[0], pa2[0]) || !bytes.Equal(pa1[0], pb1[0]) {
		t.Fatal("payloads differ across connections")
	}
}

func TestDeliverOfflineRecipientIsNoop(t *testing.T) {
	reg := NewRegistry()
	rt, dropped := newTestRouter(reg)

	b1 := NewClient("b1", "bob", nil, 8)
	reg.Register("bob", b1)

	env := &Envelope{Type: TypeMessage, SenderID: "bob", ReceiverID: "alice", Content: "into the void"}
	if err := rt.Deliver(env); err != nil {
		t.Fatalf("offline recipient must be a silent no-op, got %v", err)
	}
	// the sender mirror still fires
	if got := drain(b1); len(got) != 1 {
		t.Fatalf("sender mirror pushes = %d, want 1", len(got))
	}
	if len(*dropped) != 0 {
		t.Fatalf("dropped %v, want none", *dropped)
	}
}

func TestDeliverRejectsBadAddressing(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)

	if err := rt.Deliver(&Envelope{SenderID: "", ReceiverID: "alice"}); err == nil {
		t.Fatal("empty senderId accepted")
	}
	if err := rt.Deliver(&Envelope{SenderID: "bob", ReceiverID: ""}); err == nil {
		t.Fatal("empty receiverId accepted")
	}
}

func TestDeliverDropsDeadConnectionAndContinues(t *testing.T) {
	reg := NewRegistry()
	rt, dropped := newTestRouter(reg)

	// zero-length queue: every enqueue fails, simulating a dead socket
	dead := NewClient("dead", "alice", nil, 0)
	live := NewClient("live", "alice", nil, 8)
	reg.Register("alice", dead)
	reg.Register("alice", live)

	env := &Envelope{Type: TypeMessage, SenderID: "bob", ReceiverID: "alice"}
	if err := rt.Deliver(env); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if got := drain(live); len(got) != 1 {
		t.Fatalf("healthy sibling got %d pushes, want 1", len(got))
	}
	if len(*dropped) != 1 || (*dropped)[0] != "dead" {
		t.Fatalf("dropped = %v, want [dead]", *dropped)
	}
	if reg.DeviceCount("alice") != 1 {
		t.Fatalf("device count = %d after prune, want 1", reg.DeviceCount("alice"))
	}
}

func TestDeliverSelfMessageNoDoublePush(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)

	a1 := NewClient("a1", "alice", nil, 8)
	reg.Register("alice", a1)

	env := &Envelope{Type: TypeMessage, SenderID: "alice", ReceiverID: "alice", Content: "note to self"}
	if err := rt.Deliver(env); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got := drain(a1); len(got) != 1 {
		t.Fatalf("self-addressed envelope pushed %d times, want 1", len(got))
	}
}

type fakeUnread struct{ byUser map[string]int }

func (f *fakeUnread) Incr(user string) error {
	f.byUser[user]++
	return nil
}

func TestDeliverOfflineIncrementsUnread(t *testing.T) {
	reg := NewRegistry()
	unread := &fakeUnread{byUser: map[string]int{}}
	rt, _ := newTestRouter(reg, WithUnreadCounter(unread))

	env := &Envelope{Type: TypeMessage, SenderID: "bob", ReceiverID: "alice"}
	if err := rt.Deliver(env); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if unread.byUser["alice"] != 1 {
		t.Fatalf("unread = %v, want alice:1", unread.byUser)
	}
}

type fakeRelay struct {
	gw      string
	payload []byte
}

func (f *fakeRelay) Publish(gatewayID string, payload []byte) error {
	f.gw = gatewayID
	f.payload = payload
	return nil
}

func TestDeliverRelaysToSiblingGateway(t *testing.T) {
	reg := NewRegistry()
	relay := &fakeRelay{}
	lookup := func(user string) (string, bool) {
		if user == "alice" {
			return "gw-other", true
		}
		return "", false
	}
	unread := &fakeUnread{byUser: map[string]int{}}
	rt, _ := newTestRouter(reg, WithRelay(lookup, relay), WithUnreadCounter(unread))

	env := &Envelope{Type: TypeMessage, SenderID: "bob", ReceiverID: "alice", Content: "ping"}
	if err := rt.Deliver(env); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if relay.gw != "gw-other" {
		t.Fatalf("relayed to %q, want gw-other", relay.gw)
	}
	if len(relay.payload) == 0 {
		t.Fatal("relay payload empty")
	}
	// a handed-over push must not also count as unread
	if unread.byUser["alice"] != 0 {
		t.Fatalf("unread = %v, want none", unread.byUser)
	}
}

func TestDeliverRelayed(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)

	a1 := NewClient("a1", "alice", nil, 8)
	reg.Register("alice", a1)

	env := &Envelope{Type: TypeMessage, SenderID: "bob", ReceiverID: "alice", Content: "via relay"}
	if err := rt.DeliverRelayed(env); err != nil {
		t.Fatalf("DeliverRelayed: %v", err)
	}
	// fanned out on the worker pool
	select {
	case <-a1.Send:
	case <-time.After(2 * time.Second):
		t.Fatal("relayed push never arrived")
	}
}

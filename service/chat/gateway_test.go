package chat

import (
	"testing"
)

func TestNotifyLiveOnlineParties(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)
	g := NewGateway(rt)

	a1 := NewClient("a1", "alice", nil, 8)
	b1 := NewClient("b1", "bob", nil, 8)
	reg.Register("alice", a1)
	reg.Register("bob", b1)

	g.NotifyLive(PersistedMessage{
		ID:         "m-1",
		SenderID:   "bob",
		ReceiverID: "alice",
		Content:    "persisted then pushed",
		CreatedAt:  1700000000000,
	})

	if got := drain(a1); len(got) != 1 {
		t.Fatalf("recipient pushes = %d, want 1", len(got))
	}
	if got := drain(b1); len(got) != 1 {
		t.Fatalf("sender mirror pushes = %d, want 1", len(got))
	}
}

func TestNotifyLiveOfflineNeverFails(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)
	g := NewGateway(rt)

	// nobody online, malformed addressing: both must be swallowed
	g.NotifyLive(PersistedMessage{ID: "m-2", SenderID: "bob", ReceiverID: "alice"})
	g.NotifyLive(PersistedMessage{ID: "m-3", SenderID: "", ReceiverID: ""})
}

type fakeRecent struct{ n int }

func (f *fakeRecent) Append(senderID, receiverID string, payload []byte) error {
	f.n++
	return nil
}

func TestNotifyLiveAppendsRecentLog(t *testing.T) {
	reg := NewRegistry()
	rt, _ := newTestRouter(reg)
	recent := &fakeRecent{}
	g := NewGateway(rt).WithRecentLog(recent)

	g.NotifyLive(PersistedMessage{ID: "m-4", SenderID: "bob", ReceiverID: "alice", Content: "x"})
	if recent.n != 1 {
		t.Fatalf("recent log appends = %d, want 1", recent.n)
	}
	// addressing violations skip the recent log too
	g.NotifyLive(PersistedMessage{ID: "m-5"})
	if recent.n != 1 {
		t.Fatalf("recent log appends = %d after bad record, want 1", recent.n)
	}
}

package chat

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Registry maps identities to their live connection sets. It is the only
// mutable shared state of the core: register/unregister mutate, everything
// else reads snapshots. Shards keyed by identity keep unrelated users from
// contending on a single mutex; operations on one identity serialize on its
// shard. No I/O ever happens under a shard lock.
type Registry struct {
	shards [shardCount]*regShard
}

type regShard struct {
	mu    sync.RWMutex
	users map[string]map[string]*Client // user -> conn_id -> client
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &regShard{users: make(map[string]map[string]*Client)}
	}
	return r
}

func (r *Registry) shardFor(user string) *regShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(user))
	return r.shards[h.Sum32()%shardCount]
}

// Register adds the client to its user's connection set. Re-registering the
// same connection is a no-op, so retry races are harmless.
func (r *Registry) Register(user string, c *Client) {
	if user == "" || c == nil {
		return
	}
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.users[user]
	if m == nil {
		m = make(map[string]*Client)
		s.users[user] = m
	}
	m[c.ConnID] = c
}

// Unregister removes the client; when the set empties the user key is pruned
// eagerly so presence queries never see ghosts. Double-unregister from racing
// close paths is a no-op.
func (r *Registry) Unregister(user string, c *Client) {
	if user == "" || c == nil {
		return
	}
	s := r.shardFor(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.users[user]
	if m == nil {
		return
	}
	delete(m, c.ConnID)
	if len(m) == 0 {
		delete(s.users, user)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections; empty,
// never nil, for unknown identities.
func (r *Registry) ConnectionsFor(user string) []*Client {
	s := r.shardFor(user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.users[user]
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) IsOnline(user string) bool {
	s := r.shardFor(user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[user]) > 0
}

func (r *Registry) DeviceCount(user string) int {
	s := r.shardFor(user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[user])
}

// Range visits every registered connection until f returns false. Snapshots
// each shard before calling out so f never runs under a lock.
func (r *Registry) Range(f func(user string, c *Client) bool) {
	for _, s := range r.shards {
		s.mu.RLock()
		type pair struct {
			user string
			c    *Client
		}
		snap := make([]pair, 0, len(s.users))
		for user, m := range s.users {
			for _, c := range m {
				snap = append(snap, pair{user, c})
			}
		}
		s.mu.RUnlock()
		for _, p := range snap {
			if !f(p.user, p.c) {
				return
			}
		}
	}
}

// Len counts all live connections, for metrics and shutdown logging.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, m := range s.users {
			n += len(m)
		}
		s.mu.RUnlock()
	}
	return n
}

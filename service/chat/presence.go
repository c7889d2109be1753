package chat

// PresenceTracker is the read-only query surface over the registry used by
// the CRUD layer to decide between live push and polling. It performs no
// mutation; an unknown identity is simply offline.
type PresenceTracker struct {
	reg *Registry
}

func NewPresenceTracker(reg *Registry) *PresenceTracker {
	return &PresenceTracker{reg: reg}
}

func (p *PresenceTracker) IsOnline(user string) bool {
	return p.reg.IsOnline(user)
}

func (p *PresenceTracker) DeviceCount(user string) int {
	return p.reg.DeviceCount(user)
}

// OnlineSubset filters the given identities down to those currently online.
func (p *PresenceTracker) OnlineSubset(users []string) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if p.reg.IsOnline(u) {
			out = append(out, u)
		}
	}
	return out
}

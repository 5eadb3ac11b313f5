package gateway

import (
	"sync"
	"time"
)

// idleAfter is how long a client may go without traffic before it is
// reported as idle in status snapshots.
const idleAfter = 5 * time.Minute

// registry tracks connected gateway clients by id.
type registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func newRegistry() *registry {
	return &registry{clients: make(map[string]*Client)}
}

func (r *registry) add(c *Client) {
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	delete(r.clients, id)
	r.mu.Unlock()
}

// touch records activity for a client, keeping idle reporting honest.
func (r *registry) touch(id string) {
	r.mu.Lock()
	if c, ok := r.clients[id]; ok {
		c.LastActivity = time.Now()
	}
	r.mu.Unlock()
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// each calls fn for every connected client. The lock is held while fn
// runs, so fn must not call back into the registry.
func (r *registry) each(fn func(*Client)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		fn(c)
	}
}

// snapshot returns status info for every connected client.
func (r *registry) snapshot() []ClientInfo {
	now := time.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		infos = append(infos, ClientInfo{
			ID:           c.ID,
			SessionID:    c.session(),
			ConnectedAt:  c.ConnectedAt,
			LastActivity: c.LastActivity,
			IPAddress:    c.IPAddress,
			Idle:         now.Sub(c.LastActivity) > idleAfter,
		})
	}
	return infos
}

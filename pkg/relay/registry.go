package relay

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps connection ids to live peers. Safe for concurrent use.
type Registry struct {
	peers *xsync.MapOf[uuid.UUID, *peer]
}

func NewRegistry() *Registry {
	return &Registry{peers: xsync.NewMapOf[uuid.UUID, *peer]()}
}

// add registers p unless its id is taken.
func (r *Registry) add(p *peer) bool {
	_, loaded := r.peers.LoadOrStore(p.id, p)
	return !loaded
}

func (r *Registry) get(id uuid.UUID) (*peer, bool) {
	return r.peers.Load(id)
}

// remove deletes id only while it still maps to p.
func (r *Registry) remove(p *peer) {
	r.peers.Compute(p.id, func(old *peer, loaded bool) (*peer, bool) {
		return old, !loaded || old == p
	})
}

func (r *Registry) Has(id uuid.UUID) bool {
	_, ok := r.peers.Load(id)
	return ok
}

func (r *Registry) Len() int {
	return r.peers.Size()
}

// IDs returns the registered connection ids in no particular order.
func (r *Registry) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, r.peers.Size())
	r.peers.Range(func(id uuid.UUID, _ *peer) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

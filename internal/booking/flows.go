package booking

import (
	"sync"
	"time"
)

// Flows keeps open booking flows in memory, keyed by id and scoped to the
// session that started them.
type Flows struct {
	mu    sync.Mutex
	items map[string]*Flow
	ttl   time.Duration
	now   func() time.Time
}

func NewFlows(ttl time.Duration) *Flows {
	return &Flows{items: make(map[string]*Flow), ttl: ttl, now: time.Now}
}

func (fs *Flows) Put(f *Flow) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sweepLocked()
	fs.items[f.ID] = f
}

// Get returns the flow id if it exists, has not expired and belongs to
// owner. Any mismatch reads as not found.
func (fs *Flows) Get(id, owner string) (*Flow, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.items[id]
	if !ok || f.Owner != owner {
		return nil, ErrFlowNotFound
	}
	if fs.expiredLocked(f) {
		delete(fs.items, id)
		return nil, ErrFlowNotFound
	}
	return f, nil
}

func (fs *Flows) Delete(id string) {
	fs.mu.Lock()
	delete(fs.items, id)
	fs.mu.Unlock()
}

func (fs *Flows) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.items)
}

func (fs *Flows) expiredLocked(f *Flow) bool {
	if f.State() == Confirming {
		return false
	}
	return fs.now().Sub(f.CreatedAt) > fs.ttl
}

func (fs *Flows) sweepLocked() {
	for id, f := range fs.items {
		if fs.expiredLocked(f) {
			delete(fs.items, id)
		}
	}
}

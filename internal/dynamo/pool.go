package dynamo

import "sync"

// StatePool hands out zeroed scratch vectors of one length, for systems
// that need a temporary buffer on every Derive call. It is safe for
// concurrent use.
type StatePool struct {
	size int
	pool sync.Pool
}

func NewStatePool(size int) *StatePool {
	p := &StatePool{size: size}
	p.pool.New = func() any {
		s := make(State, size)
		return &s
	}
	return p
}

// Size is the length of every buffer the pool returns.
func (p *StatePool) Size() int { return p.size }

func (p *StatePool) Get() State {
	s := *p.pool.Get().(*State)
	clear(s)
	return s
}

// Put returns s to the pool. Buffers of another length are dropped.
func (p *StatePool) Put(s State) {
	if len(s) != p.size {
		return
	}
	p.pool.Put(&s)
}

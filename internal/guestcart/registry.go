package guestcart

import "sync"

// KeyLocker is implemented by backends shared between processes. Lock
// blocks until key is held and returns the matching release.
type KeyLocker interface {
	Lock(key string) (func(), error)
}

// Registry hands out stores that share one mutex per key, so concurrent
// requests for the same guest never interleave a load and a save.
type Registry struct {
	backend Backend
	opts    []Option

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry(backend Backend, opts ...Option) *Registry {
	return &Registry{
		backend: backend,
		opts:    opts,
		locks:   make(map[string]*keyLock),
	}
}

// For returns the store bound to key
func (r *Registry) For(key string) *Store {
	s := New(r.backend, key, r.opts...)
	s.registry = r
	return s
}

func (r *Registry) lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

// held reports how many keys currently have a lock entry
func (r *Registry) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

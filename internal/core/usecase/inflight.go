package usecase

import "sync"

// inflightGuard prevents two pipeline runs from racing on one document.
// Status is read-then-written across separate commits, so the guard has to
// live above the repository.
type inflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]struct{})}
}

func (g *inflightGuard) tryAcquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[key]; held {
		return nil, false
	}
	g.active[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.active, key)
		g.mu.Unlock()
	}, true
}

// Package proc tracks the background processes this tool owns (the serve
// process, the tunnel agent) and tears them down in order on shutdown.
package proc

import (
	"log"
	"sync"
)

// Stopper is anything the shutdown path can tear down.
type Stopper interface {
	Name() string
	Stop() error
}

// Registry collects running processes for an exactly-once, ordered shutdown.
type Registry struct {
	mu      sync.Mutex
	procs   []Stopper
	stopped bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a process for shutdown. No-op after StopAll has run.
func (r *Registry) Add(s Stopper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.procs = append(r.procs, s)
}

// Count returns the number of registered processes.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// StopAll stops every registered process in reverse registration order, so
// the tunnel closes before the server it points at. Safe to call more than
// once; only the first call does anything.
func (r *Registry) StopAll() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	procs := r.procs
	r.procs = nil
	r.mu.Unlock()

	for i := len(procs) - 1; i >= 0; i-- {
		if err := procs[i].Stop(); err != nil {
			log.Printf("⚠️  Failed to stop %s: %v", procs[i].Name(), err)
		}
	}
}

package console

import (
	"log"
	"sync"
	"time"
)

// Factory builds the console for a new browser id.
type Factory func(id string) *Console

type entry struct {
	console  *Console
	lastSeen time.Time
}

// Registry keeps one console per browser and forgets idle ones.
type Registry struct {
	mu       sync.Mutex
	consoles map[string]*entry
	factory  Factory
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		consoles: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
	}
}

// Get returns the console for id and marks it as used.
func (r *Registry) Get(id string) (*Console, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.consoles[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.console, true
}

// GetOrCreate returns the console for id, creating it on first use.
func (r *Registry) GetOrCreate(id string) *Console {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.consoles[id]; ok {
		e.lastSeen = r.now()
		return e.console
	}
	c := r.factory(id)
	r.consoles[id] = &entry{console: c, lastSeen: r.now()}
	return c
}

// Len returns the number of live consoles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}

// Prune closes and removes consoles unused for longer than idle. Consoles
// with a submission in flight are kept. It returns how many were removed.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Console
	for id, e := range r.consoles {
		if e.lastSeen.After(cutoff) || e.console.Busy() {
			continue
		}
		stale = append(stale, e.console)
		delete(r.consoles, id)
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	if len(stale) > 0 {
		log.Printf("Pruned %d idle console(s)", len(stale))
	}
	return len(stale)
}

// CloseAll cancels every console's running cycle and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	consoles := r.consoles
	r.consoles = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range consoles {
		e.console.Close()
	}
}

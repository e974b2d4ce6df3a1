package pin

import "sync"

// Registry tracks open sessions. Sessions leave it when they close.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	if _, ok := r.sessions[s.ID()]; ok {
		r.mu.Unlock()
		return
	}
	r.sessions[s.ID()] = s
	r.order = append(r.order, s.ID())
	r.mu.Unlock()

	s.OnClose(func() { r.remove(s.ID()) })
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns open sessions oldest first.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// CloseAll closes every open session and returns how many it closed.
func (r *Registry) CloseAll() int {
	n := 0
	for _, s := range r.List() {
		if s.Close() {
			n++
		}
	}
	return n
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

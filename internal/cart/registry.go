package cart

import (
	"sync"
	"time"
)

// Registry хранит корзины по идентификатору сессии
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	onCreate func(sessionID string, s *Store)
}

type session struct {
	store    *Store
	lastSeen time.Time
}

// NewRegistry ttl <= 0 отключает вытеснение неактивных сессий.
// onCreate вызывается для каждой новой корзины (например, чтобы подписать логгер).
func NewRegistry(ttl time.Duration, onCreate func(sessionID string, s *Store)) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		onCreate: onCreate,
	}
}

// Get возвращает корзину сессии, создавая её при первом обращении
func (r *Registry) Get(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if s, ok := r.sessions[sessionID]; ok {
		s.lastSeen = now
		return s.store
	}
	st := NewStore()
	r.sessions[sessionID] = &session{store: st, lastSeen: now}
	if r.onCreate != nil {
		r.onCreate(sessionID, st)
	}
	return st
}

// Len количество активных сессий
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict удаляет сессии, не использовавшиеся дольше ttl; возвращает число удалённых
func (r *Registry) Evict(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.ttl {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-cs-esalytics/internal/model"
)

// SessionCookie holds the dashboard session id.
const SessionCookie = "esalytics_session"

// Session holds the matches one browser uploaded, keyed by file name in
// upload order.
type Session struct {
	ID string

	mu       sync.RWMutex
	matches  map[string]*model.ParsedMatch
	order    []string
	lastSeen time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, matches: make(map[string]*model.ParsedMatch), lastSeen: now}
}

// Has reports whether a file of that name was already uploaded.
func (s *Session) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.matches[name]
	return ok
}

// Add stores m under name. Returns false if the name is taken.
func (s *Session) Add(name string, m *model.ParsedMatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[name]; ok {
		return false
	}
	s.matches[name] = m
	s.order = append(s.order, name)
	return true
}

// Names returns the uploaded file names in upload order.
func (s *Session) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Match returns the match uploaded as name, or nil.
func (s *Session) Match(name string) *model.ParsedMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches[name]
}

// All returns every uploaded match in upload order.
func (s *Session) All() []*model.ParsedMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ParsedMatch, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.matches[name])
	}
	return out
}

// Len returns the number of uploaded matches.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Reset drops all uploaded matches.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = make(map[string]*model.ParsedMatch)
	s.order = nil
}

// SessionStore keeps sessions in memory and evicts those idle longer than ttl.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore returns an empty store.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session), ttl: ttl, now: time.Now}
}

// Get returns the live session id and marks it as used.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.lastSeen = st.now()
	s.mu.Unlock()
	return s, true
}

// Create starts a new session with a random id.
func (st *SessionStore) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := newSession(uuid.NewString(), st.now())
	st.sessions[s.ID] = s
	return s
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Evict removes sessions idle longer than the TTL and returns their ids.
func (st *SessionStore) Evict() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-st.ttl)
	var evicted []string
	for id, s := range st.sessions {
		s.mu.RLock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.RUnlock()
		if idle {
			delete(st.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done. onEvict is
// called with the ids removed in each sweep.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration, onEvict func([]string)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ids := st.Evict(); len(ids) > 0 && onEvict != nil {
				onEvict(ids)
			}
		}
	}
}

type sessionKey struct{}

// withSession attaches the caller's session to the request, creating one
// (and setting the cookie) when the cookie is missing or stale.
func (st *SessionStore) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s *Session
		if c, err := r.Cookie(SessionCookie); err == nil {
			s, _ = st.Get(c.Value)
		}
		if s == nil {
			s = st.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

func sessionFrom(r *http.Request) *Session {
	s, _ := r.Context().Value(sessionKey{}).(*Session)
	return s
}

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/KaramelBytes/musicmax-cli/internal/chat"
	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the browser's session id.
const SessionCookie = "musicmax_session"

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 12 * time.Hour

type sessionEntry struct {
	session  *chat.Session
	lastSeen time.Time
}

// sessionManager keeps one chat.Session per browser, in memory only.
// Sessions are created on the first key or chat request and dropped after
// ttl without use.
type sessionManager struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*sessionEntry
}

func newSessionManager(ttl time.Duration) *sessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionManager{ttl: ttl, now: time.Now, sessions: map[string]*sessionEntry{}}
}

// lookup returns the caller's live session, or nil. It never creates one.
func (m *sessionManager) lookup(r *http.Request) *chat.Session {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	e, ok := m.sessions[c.Value]
	if !ok {
		return nil
	}
	e.lastSeen = m.now()
	return e.session
}

// get returns the caller's session, creating one and setting the cookie if needed.
func (m *sessionManager) get(w http.ResponseWriter, r *http.Request) *chat.Session {
	if s := m.lookup(r); s != nil {
		return s
	}
	id := uuid.NewString()
	s := chat.NewSession(id)
	m.mu.Lock()
	m.sessions[id] = &sessionEntry{session: s, lastSeen: m.now()}
	m.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(m.ttl / time.Second),
	})
	return s
}

// drop forgets the caller's session.
func (m *sessionManager) drop(r *http.Request) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, c.Value)
	m.mu.Unlock()
}

func (m *sessionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	return len(m.sessions)
}

func (m *sessionManager) pruneLocked() {
	cutoff := m.now().Add(-m.ttl)
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

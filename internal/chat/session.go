package chat

import (
	"sync"
	"time"
)

// Turn is one completed exchange.
type Turn struct {
	Query    string    `json:"query"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Session holds one user's chat history and API credential in memory.
// History only grows; Reset starts a fresh session.
type Session struct {
	ID string

	mu      sync.Mutex
	apiKey  string
	history []Turn
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// SetAPIKey stores the credential used for subsequent Ask calls.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
}

func (s *Session) HasAPIKey() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey != ""
}

// History returns a copy of the exchanges so far, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// Len returns the number of completed exchanges.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Reset drops history and credential.
func (s *Session) Reset() {
	s.mu.Lock()
	s.apiKey = ""
	s.history = nil
	s.mu.Unlock()
}

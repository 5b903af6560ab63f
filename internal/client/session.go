package client

import "sync"

// Session holds the current access token in memory. Subscribers are told
// about every change; an empty token means logged out.
type Session struct {
	mu     sync.RWMutex
	token  string
	nextID int
	subs   map[int]func(token string)
}

func NewSession() *Session {
	return &Session{
		subs: make(map[int]func(string)),
	}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	s.token = token
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(token)
	}
}

func (s *Session) Clear() {
	s.SetAccessToken("")
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn func(token string)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, id)
	}
}

func (s *Session) snapshot() []func(string) {
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}

	return subs
}

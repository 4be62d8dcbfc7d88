package cart

import "sync"

// Sessions holds one cart per terminal session. Carts are never persisted.
// A cart that becomes empty is dropped, so only sessions with something in
// their cart take memory.
type Sessions struct {
	mu    sync.Mutex
	carts map[string]*sessionCart
}

type sessionCart struct {
	mu   sync.Mutex
	cart *Cart
	// closed is set under mu once the cart has left the table; a caller
	// that was waiting on mu must look the session up again.
	closed bool
}

// NewSessions returns an empty session table.
func NewSessions() *Sessions {
	return &Sessions{carts: make(map[string]*sessionCart)}
}

// lock returns the session's cart with its lock held. When create is false
// and the session has no cart it returns nil.
func (s *Sessions) lock(sessionID string, create bool) *sessionCart {
	for {
		s.mu.Lock()
		sc, ok := s.carts[sessionID]
		if !ok {
			if !create {
				s.mu.Unlock()
				return nil
			}
			sc = &sessionCart{cart: New()}
			s.carts[sessionID] = sc
		}
		s.mu.Unlock()

		sc.mu.Lock()
		if !sc.closed {
			return sc
		}
		sc.mu.Unlock()
	}
}

// unlock drops the cart if it is empty and releases it.
func (s *Sessions) unlock(sessionID string, sc *sessionCart) {
	if sc.cart.Len() == 0 {
		sc.closed = true
		s.mu.Lock()
		if s.carts[sessionID] == sc {
			delete(s.carts, sessionID)
		}
		s.mu.Unlock()
	}
	sc.mu.Unlock()
}

// Do runs fn with exclusive access to the session's cart, creating an
// empty cart on first use.
func (s *Sessions) Do(sessionID string, fn func(c *Cart) error) error {
	sc := s.lock(sessionID, true)
	defer s.unlock(sessionID, sc)
	return fn(sc.cart)
}

// With runs fn like Do but never opens a cart: a session without one gets
// a throwaway empty cart.
func (s *Sessions) With(sessionID string, fn func(c *Cart) error) error {
	sc := s.lock(sessionID, false)
	if sc == nil {
		return fn(New())
	}
	defer s.unlock(sessionID, sc)
	return fn(sc.cart)
}

// Discard empties and forgets the session's cart.
func (s *Sessions) Discard(sessionID string) {
	s.With(sessionID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// Len returns the number of open carts.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

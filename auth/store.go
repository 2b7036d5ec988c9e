package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ChangeListener is notified after the stored token or record changes.
type ChangeListener func(token string, record map[string]any)

// Store holds the current bearer token and authenticated record.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	token     string
	record    map[string]any
	listeners map[string]ChangeListener
}

// NewStore creates an empty auth store.
func NewStore() *Store {
	return &Store{listeners: make(map[string]ChangeListener)}
}

// Token returns the current bearer token ("" when unauthenticated).
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Record returns the current authenticated record (nil when unauthenticated).
func (s *Store) Record() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// IsValid reports whether the stored token is a JWT whose "exp" claim lies
// in the future. The signature is not verified; the server remains the
// authority, this is only used to decide whether sending the token is
// worthwhile.
func (s *Store) IsValid() bool {
	token := s.Token()
	if token == "" {
		return false
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(time.Now())
}

// Save stores the token and record, then notifies listeners. Listeners run
// outside the store lock and may call back into the store; a panicking
// listener does not prevent the others from being notified.
func (s *Store) Save(token string, record map[string]any) {
	s.mu.Lock()
	s.token = token
	s.record = record
	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() { _ = recover() }()
			fn(token, record)
		}()
	}
}

// Clear removes the stored token and record.
func (s *Store) Clear() {
	s.Save("", nil)
}

// OnChange registers a change listener and returns a function that removes
// exactly this registration.
func (s *Store) OnChange(fn ChangeListener) func() {
	id := uuid.NewString()

	s.mu.Lock()
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

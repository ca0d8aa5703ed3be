package widget

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a generated widget stays servable.
const DefaultTTL = 24 * time.Hour

// Store keeps generated widget HTML in memory under short ids. Widgets are
// throwaway artifacts regenerated from Notion on demand, so process restarts
// losing them is acceptable.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clockwork.Clock
	widgets map[string]storedWidget
}

type storedWidget struct {
	html    string
	expires time.Time
}

// NewStore creates a widget store with the given TTL.
func NewStore(ttl time.Duration) *Store {
	return newStore(ttl, clockwork.NewRealClock())
}

func newStore(ttl time.Duration, clock clockwork.Clock) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		clock:   clock,
		widgets: make(map[string]storedWidget),
	}
}

// Put stores widget HTML and returns its id.
func (s *Store) Put(html string) string {
	id := uuid.NewString()[:12]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets[id] = storedWidget{
		html:    html,
		expires: s.clock.Now().Add(s.ttl),
	}
	return id
}

// Get returns the widget HTML for an id. Expired widgets are evicted on
// access and reported as missing.
func (s *Store) Get(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.widgets[id]
	if !ok {
		return "", false
	}
	if s.clock.Now().After(w.expires) {
		delete(s.widgets, id)
		return "", false
	}
	return w.html, true
}

// Len returns the number of stored widgets, counting expired ones not yet
// evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

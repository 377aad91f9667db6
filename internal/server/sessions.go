package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/roadmap-survey/internal/roadmap"
	"github.com/kingrea/roadmap-survey/internal/survey"
)

// session is one respondent's form. mu serializes edits and submissions so
// the roadmap is never read while it is being changed.
type session struct {
	id       string
	lastSeen atomic.Int64 // unix nanos

	mu        sync.Mutex
	store     *roadmap.Store
	submitter *survey.Submitter
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *session) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// sessionTable holds live sessions keyed by id.
type sessionTable struct {
	ttl time.Duration

	mu    sync.Mutex
	items map[string]*session
}

func newSessionTable(ttl time.Duration) *sessionTable {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionTable{ttl: ttl, items: map[string]*session{}}
}

// create registers a fresh session after dropping the expired ones. It
// returns the session and the ids that were swept.
func (t *sessionTable) create(now time.Time, store *roadmap.Store, submitter *survey.Submitter) (*session, []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var swept []string
	for id, sess := range t.items {
		if sess.idle(now) > t.ttl {
			delete(t.items, id)
			swept = append(swept, id)
		}
	}
	sess := &session{
		id:        uuid.NewString(),
		store:     store,
		submitter: submitter,
	}
	sess.touch(now)
	t.items[sess.id] = sess
	return sess, swept
}

func (t *sessionTable) get(id string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.items[id]
	return sess, ok
}

func (t *sessionTable) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return false
	}
	delete(t.items, id)
	return true
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

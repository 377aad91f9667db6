package roadmap

// Store holds the roadmap of a single session. It is not safe for concurrent
// use; callers that share a Store across goroutines serialize access.
type Store struct {
	seed    Seed
	current *Roadmap
}

// NewStore prepares a session store that seeds from table on first use.
func NewStore(table Seed) *Store {
	return &Store{seed: table}
}

// Seed initializes the session roadmap from the seed table unless one already
// exists, and returns the current roadmap either way.
func (s *Store) Seed() *Roadmap {
	if s.current == nil {
		s.current = FromSeed(s.seed)
	}
	return s.current
}

// Seeded reports whether Seed has run for this session.
func (s *Store) Seeded() bool {
	return s.current != nil
}

// Reset discards the session roadmap; the next Seed starts over.
func (s *Store) Reset() {
	s.current = nil
}

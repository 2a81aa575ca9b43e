package ledger

// MemoryStore is a non-durable ledger for tests.
type MemoryStore struct {
	seen map[string]struct{}
}

// NewMemory constructs an in-memory ledger pre-seeded with ids.
func NewMemory(ids ...string) *MemoryStore {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return &MemoryStore{seen: seen}
}

// Has reports whether id was added.
func (s *MemoryStore) Has(id string) (bool, error) {
	_, ok := s.seen[id]
	return ok, nil
}

// Add records id.
func (s *MemoryStore) Add(id string) error {
	s.seen[id] = struct{}{}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

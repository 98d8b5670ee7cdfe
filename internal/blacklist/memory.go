package blacklist

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured
// and in tests. Unlike the Postgres table it has to break same-second
// timestamp ties itself, so each write also records a sequence number and
// List orders by (inserted_at, seq) descending.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	seq     uint64

	now func() int64
}

type memEntry struct {
	insertedAt int64
	seq        uint64
}

// NewMemoryStore creates an empty in-memory blacklist.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		now:     func() int64 { return time.Now().Unix() },
	}
}

func (s *MemoryStore) Add(_ context.Context, identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries[identifier] = memEntry{insertedAt: s.now(), seq: s.seq}
	return true
}

func (s *MemoryStore) Remove(_ context.Context, identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, identifier)
	return true
}

func (s *MemoryStore) Contains(_ context.Context, identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[identifier]
	return ok
}

func (s *MemoryStore) List(_ context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	type keyed struct {
		Entry
		seq uint64
	}
	all := make([]keyed, 0, len(s.entries))
	for id, e := range s.entries {
		all = append(all, keyed{
			Entry: Entry{Identifier: id, InsertedAt: e.insertedAt},
			seq:   e.seq,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].InsertedAt != all[j].InsertedAt {
			return all[i].InsertedAt > all[j].InsertedAt
		}
		return all[i].seq > all[j].seq
	})

	entries := make([]Entry, len(all))
	for i, k := range all {
		entries[i] = k.Entry
	}
	return entries
}

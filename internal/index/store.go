package index

import "sync/atomic"

// Store hands out the current snapshot to readers and lets the rebuild path
// swap in a new one atomically. Readers keep resolving against the snapshot
// they grabbed, so a swap never tears an in-flight query.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the active snapshot, or nil before the first build.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs a new snapshot and returns the one it replaced.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}

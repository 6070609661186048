package internal

import (
	"path/filepath"
	"sync"
)

// IndexEntry is the first recorded location of a digest.
type IndexEntry struct {
	Folder   string // relative to the target root
	Filename string
}

// Rel returns the entry's path relative to the target root.
func (e IndexEntry) Rel() string {
	return filepath.Join(e.Folder, e.Filename)
}

// DedupIndex maps content digest to the first known destination of that
// content. It is rebuilt from manifests every run; the manifests stay the
// source of truth. Reads may run concurrently with hashing, insertions are
// serialized with manifest writes.
type DedupIndex struct {
	mu      sync.RWMutex
	entries map[string]IndexEntry
}

// BuildIndex merges every loaded folder manifest into a fresh index.
// Records without a digest (quarantined unreadable files) are not indexed.
func BuildIndex(store *Store) *DedupIndex {
	idx := &DedupIndex{entries: make(map[string]IndexEntry)}
	for _, folder := range store.Folders() {
		m := store.Folder(folder)
		for name, rec := range m.Files {
			if rec.Sha256 == "" {
				continue
			}
			if _, ok := idx.entries[rec.Sha256]; !ok {
				idx.entries[rec.Sha256] = IndexEntry{Folder: folder, Filename: name}
			}
		}
	}
	return idx
}

// Lookup returns the recorded destination of a digest, if any.
func (idx *DedupIndex) Lookup(digest string) (IndexEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[digest]
	return e, ok
}

// Insert records a newly accepted digest. The first occurrence wins;
// later insertions of the same digest are ignored.
func (idx *DedupIndex) Insert(digest string, entry IndexEntry) {
	if digest == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.entries[digest]; !ok {
		idx.entries[digest] = entry
	}
}

// Len returns the number of distinct digests known.
func (idx *DedupIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

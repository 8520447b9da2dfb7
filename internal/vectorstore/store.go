// Package vectorstore keeps one vector collection per (owner, document)
// namespace: an in-memory cache in front of a durable JSON snapshot per
// namespace.
package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Key identifies one independent vector index.
type Key struct {
	OwnerID    uint
	DocumentID string
}

// Namespace returns the stable name used for the durable snapshot.
func (k Key) Namespace() string {
	return fmt.Sprintf("resume_%d_%s", k.OwnerID, k.DocumentID)
}

// ChunkMeta carries the per-chunk metadata stored alongside each vector.
type ChunkMeta struct {
	Ordinal int `json:"ordinal"`
	Length  int `json:"length"`
}

// Collection holds the four parallel sequences for one namespace. Position i
// in every sequence describes the same chunk.
type Collection struct {
	Namespace string      `json:"namespace"`
	IDs       []string    `json:"ids"`
	Texts     []string    `json:"texts"`
	Vectors   [][]float32 `json:"vectors"`
	Metadata  []ChunkMeta `json:"metadata"`
}

// Len returns the number of chunks in the collection.
func (c *Collection) Len() int {
	return len(c.IDs)
}

func (c *Collection) validate() error {
	n := len(c.IDs)
	if len(c.Texts) != n || len(c.Vectors) != n || len(c.Metadata) != n {
		return fmt.Errorf("collection %s sequences out of alignment: ids=%d texts=%d vectors=%d metadata=%d",
			c.Namespace, n, len(c.Texts), len(c.Vectors), len(c.Metadata))
	}
	return nil
}

// Store maps namespace keys to collections. The map itself is synchronized;
// concurrent Rebuild/Delete on the same key is the caller's responsibility to
// serialize (one pending indexing operation per document at a time).
type Store struct {
	mu          sync.RWMutex
	dir         string
	collections map[Key]*Collection
}

// New creates a store persisting snapshots under dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir failed: %w", err)
	}
	return &Store{
		dir:         dir,
		collections: make(map[Key]*Collection),
	}, nil
}

// Load returns the collection for key: from memory if cached, otherwise from
// the durable snapshot, otherwise a synthesized empty collection. The empty
// collection is cached too, so repeated queries against an unindexed document
// do not touch the disk.
func (s *Store) Load(key Key) (*Collection, error) {
	s.mu.RLock()
	if col, ok := s.collections[key]; ok {
		s.mu.RUnlock()
		return col, nil
	}
	s.mu.RUnlock()

	col, err := s.readSnapshot(key)
	if err != nil {
		return nil, err
	}
	if col == nil {
		col = &Collection{Namespace: key.Namespace()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another Load may have raced us here; keep whichever arrived first.
	if cached, ok := s.collections[key]; ok {
		return cached, nil
	}
	s.collections[key] = col
	return col, nil
}

// Rebuild replaces the whole collection for key with the given parallel
// sequences and persists it. The snapshot is written before the in-memory
// entry is swapped, so a persistence failure leaves the cache untouched.
func (s *Store) Rebuild(key Key, ids, texts []string, vectors [][]float32, metadata []ChunkMeta) error {
	col := &Collection{
		Namespace: key.Namespace(),
		IDs:       ids,
		Texts:     texts,
		Vectors:   vectors,
		Metadata:  metadata,
	}
	if err := col.validate(); err != nil {
		return err
	}

	if err := s.writeSnapshot(key, col); err != nil {
		return err
	}

	s.mu.Lock()
	s.collections[key] = col
	s.mu.Unlock()
	return nil
}

// Delete removes the in-memory entry and the durable snapshot. Deleting an
// absent key is a no-op.
func (s *Store) Delete(key Key) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot failed: %w", err)
	}
	s.mu.Lock()
	delete(s.collections, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.dir, key.Namespace()+".json")
}

func (s *Store) readSnapshot(key Key) (*Collection, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot failed: %w", err)
	}

	var col Collection
	if err := json.Unmarshal(raw, &col); err != nil {
		return nil, fmt.Errorf("parse snapshot %s failed: %w", key.Namespace(), err)
	}
	if err := col.validate(); err != nil {
		return nil, err
	}
	return &col, nil
}

// writeSnapshot writes to a temp file in the same directory and renames it
// into place, so readers never observe a half-written snapshot.
func (s *Store) writeSnapshot(key Key, col *Collection) error {
	payload, err := json.Marshal(col)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key.Namespace()+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file failed: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file failed: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot failed: %w", err)
	}
	return nil
}

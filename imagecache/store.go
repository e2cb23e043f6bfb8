// Package imagecache indexes previously generated scene images so that
// textually similar prompts can reuse them instead of paying for a new
// generation.
package imagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Entry is one indexed image. ID is assigned by the store and reflects
// insertion order.
type Entry struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	ImagePath string    `json:"image_path"`
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the index. The index is append only: near-duplicate
// prompts are recorded again rather than merged, so every generated
// image stays addressable.
type Store interface {
	Append(ctx context.Context, e Entry) (int64, error)
	Entries(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, ids []int64) error
	Close() error
}

// FileStore keeps the index in one JSON file. Suited to single-process
// CLI runs; writes are serialized by a mutex and go through a temp file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

type fileIndex struct {
	NextID  int64   `json:"next_id"`
	Entries []Entry `json:"entries"`
}

func (s *FileStore) load() (fileIndex, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return fileIndex{NextID: 1}, nil
	}
	if err != nil {
		return fileIndex{}, fmt.Errorf("read cache index: %w", err)
	}
	var idx fileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fileIndex{}, fmt.Errorf("parse cache index: %w", err)
	}
	if idx.NextID < 1 {
		idx.NextID = 1
	}
	return idx, nil
}

func (s *FileStore) save(idx fileIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store cache index: %w", err)
	}
	return nil
}

func (s *FileStore) Append(ctx context.Context, e Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return 0, err
	}
	e.ID = idx.NextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	idx.NextID++
	idx.Entries = append(idx.Entries, e)
	if err := s.save(idx); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *FileStore) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(idx.Entries, func(i, j int) bool { return idx.Entries[i].ID < idx.Entries[j].ID })
	return idx.Entries, nil
}

func (s *FileStore) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return err
	}
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	idx.Entries = kept
	return s.save(idx)
}

func (s *FileStore) Close() error { return nil }

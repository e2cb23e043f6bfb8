package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// JobID derives the stable checkpoint key for a source URL.
func JobID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:12]
}

// Checkpoint is one persisted resume point. LastCompletedStep is the
// highest stage that finished; a resumed run starts at the next one.
type Checkpoint struct {
	LastCompletedStep int    `json:"last_completed_step"`
	State             *State `json:"state"`
}

// CheckpointStore persists checkpoints as one JSON file per job under a
// directory. Saves never fail the pipeline: a checkpoint is a convenience,
// losing one only costs a re-run.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates the directory if needed.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

func (s *CheckpointStore) path(jobID string) string {
	return filepath.Join(s.dir, jobID+".json")
}

// Save writes the checkpoint for a job. Errors are logged and absorbed.
func (s *CheckpointStore) Save(jobID string, cp Checkpoint) {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to encode checkpoint for %s: %v", jobID, err)
		return
	}
	tmp := s.path(jobID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("Warning: failed to write checkpoint for %s: %v", jobID, err)
		return
	}
	if err := os.Rename(tmp, s.path(jobID)); err != nil {
		log.Printf("Warning: failed to store checkpoint for %s: %v", jobID, err)
	}
}

// Load returns the checkpoint for a job, or ok=false when none exists.
// A file that cannot be parsed is treated the same as a missing one.
func (s *CheckpointStore) Load(jobID string) (Checkpoint, bool) {
	data, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: failed to read checkpoint for %s: %v", jobID, err)
		}
		return Checkpoint{}, false
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		log.Printf("Warning: checkpoint for %s is corrupt, ignoring: %v", jobID, err)
		return Checkpoint{}, false
	}
	return cp, true
}

// Delete removes a job's checkpoint. Missing files are not an error.
func (s *CheckpointStore) Delete(jobID string) {
	if err := os.Remove(s.path(jobID)); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to delete checkpoint for %s: %v", jobID, err)
	}
}

// List returns the job ids of every stored checkpoint.
func (s *CheckpointStore) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids
}

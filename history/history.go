// Package history records completed pipeline runs so operators can see
// what was produced and what went live.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"articlecast/pipeline"
)

const recordsKey = "history:records"

// Record is one completed run.
type Record struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	URL         string    `json:"url"`
	TitleKO     string    `json:"title_ko"`
	TitleEN     string    `json:"title_en"`
	OutputDir   string    `json:"output_dir"`
	SceneCount  int       `json:"scene_count"`
	ImageCount  int       `json:"image_count"`
	TotalCost   float64   `json:"total_cost"`
	CompletedAt time.Time `json:"completed_at"`
	Uploaded    bool      `json:"uploaded"`
	VideoIDs    []string  `json:"video_ids,omitempty"`
}

// RedisStore keeps records in a Redis hash keyed by job id, so a rerun
// of the same URL overwrites its earlier record.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// RecordCompleted stores a fresh record for the run.
func (s *RedisStore) RecordCompleted(ctx context.Context, jobID string, st *pipeline.State, totalCost float64) error {
	rec := Record{
		ID:          uuid.NewString(),
		JobID:       jobID,
		URL:         st.URL,
		TitleKO:     st.TitleKO,
		TitleEN:     st.TitleEN,
		OutputDir:   st.OutputDir,
		SceneCount:  len(st.ScenarioKO),
		ImageCount:  len(st.ImagePaths),
		TotalCost:   totalCost,
		CompletedAt: time.Now().UTC(),
	}
	return s.put(ctx, rec)
}

// MarkUploaded flags the job's record with its published video ids.
func (s *RedisStore) MarkUploaded(ctx context.Context, jobID string, videoIDs []string) error {
	raw, err := s.client.HGet(ctx, recordsKey, jobID).Result()
	if err != nil {
		return fmt.Errorf("load history record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return fmt.Errorf("parse history record: %w", err)
	}
	rec.Uploaded = true
	rec.VideoIDs = videoIDs
	return s.put(ctx, rec)
}

// List returns all records, most recent first.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	raw, err := s.client.HGetAll(ctx, recordsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, v := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CompletedAt.After(records[j].CompletedAt)
	})
	return records, nil
}

func (s *RedisStore) put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	if err := s.client.HSet(ctx, recordsKey, rec.JobID, data).Err(); err != nil {
		return fmt.Errorf("store history record: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

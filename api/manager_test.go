package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestJob() *Job {
	return &Job{
		ID:     "job-1",
		URL:    "https://example.com/article",
		status: StatusRunning,
		done:   make(chan struct{}),
	}
}

func TestJobWaitReturnsTerminalError(t *testing.T) {
	job := newTestJob()
	boom := errors.New("step 6 (synthesize speech): engine down")

	go func() {
		time.Sleep(10 * time.Millisecond)
		job.finish(StatusFailed, boom)
	}()

	if err := job.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v; want %v", err, boom)
	}
	if job.Status() != StatusFailed {
		t.Fatalf("status = %s; want %s", job.Status(), StatusFailed)
	}
}

func TestJobWaitNilOnCleanFinish(t *testing.T) {
	cases := []struct {
		name   string
		status JobStatus
	}{
		{"done", StatusDone},
		{"aborted", StatusAborted},
		{"stopped", StatusStopped},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			job := newTestJob()
			job.finish(c.status, nil)
			if err := job.Wait(context.Background()); err != nil {
				t.Fatalf("Wait = %v; want nil", err)
			}
		})
	}
}

func TestJobWaitHonorsContext(t *testing.T) {
	job := newTestJob()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := job.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v; want context.DeadlineExceeded", err)
	}
}

func TestJobFinishIdempotent(t *testing.T) {
	job := newTestJob()
	job.finish(StatusDone, nil)
	// A second terminal transition must not panic on the done channel.
	job.finish(StatusFailed, errors.New("late error"))

	if err := job.Wait(context.Background()); err == nil {
		t.Fatal("Wait = nil; want the last recorded error")
	}
}

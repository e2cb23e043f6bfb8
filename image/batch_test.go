package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"articlecast/imagecache"
	"articlecast/types"
)

// fakeEngine writes a marker file per prompt and records which scenes
// it rendered.
type fakeEngine struct {
	mode Mode

	mu       sync.Mutex
	prompts  []string
	failFor  map[string]bool // substring of prompt to fail on
	inFlight int
	maxSeen  int
}

func (e *fakeEngine) Generate(ctx context.Context, prompt, outputPath string) error {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxSeen {
		e.maxSeen = e.inFlight
	}
	e.prompts = append(e.prompts, prompt)
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	for sub := range e.failFor {
		if strings.Contains(prompt, sub) {
			return errors.New("engine refused prompt")
		}
	}
	return os.WriteFile(outputPath, []byte("png"), 0o644)
}

func (e *fakeEngine) Mode() Mode { return e.mode }

func (e *fakeEngine) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.prompts)
}

func promptScenes(n int) []types.Scene {
	scenes := make([]types.Scene, n)
	for i := range scenes {
		scenes[i] = types.Scene{
			SceneID:     i + 1,
			Stage:       types.StageCore,
			ImagePrompt: fmt.Sprintf("unique subject number %d standing alone", i+1),
		}
	}
	return scenes
}

func newBatchIndex(t *testing.T) *imagecache.Index {
	t.Helper()
	store, err := imagecache.NewFileStore(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return imagecache.NewIndex(store)
}

func TestGenerateAllRendersEveryScene(t *testing.T) {
	engine := &fakeEngine{mode: ModeRemoteParallel}
	b := NewBatchProcessor(engine, nil, "job1")
	dir := t.TempDir()

	got, err := b.GenerateAll(context.Background(), promptScenes(25), dir)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("got %d images; want 25", len(got))
	}
	for id, path := range got {
		want := fmt.Sprintf("scene_%03d.png", id)
		if filepath.Base(path) != want {
			t.Fatalf("scene %d path = %s; want %s", id, path, want)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("scene %d image missing: %v", id, err)
		}
	}
}

func TestGenerateAllPartialFailure(t *testing.T) {
	engine := &fakeEngine{
		mode:    ModeLocalSequential,
		failFor: map[string]bool{"number 3 ": true},
	}
	b := NewBatchProcessor(engine, nil, "job1")

	got, err := b.GenerateAll(context.Background(), promptScenes(5), t.TempDir())
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d images; want 4 with scene 3 omitted", len(got))
	}
	if _, ok := got[3]; ok {
		t.Fatal("failed scene present in result")
	}
}

func TestGenerateAllParallelRespectsWorkerCap(t *testing.T) {
	engine := &fakeEngine{mode: ModeRemoteParallel}
	b := NewBatchProcessor(engine, nil, "job1")
	b.MaxWorkers = 5

	_, err := b.GenerateAll(context.Background(), promptScenes(30), t.TempDir())
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if engine.maxSeen > b.MaxWorkers {
		t.Fatalf("saw %d concurrent generations; cap is %d", engine.maxSeen, b.MaxWorkers)
	}
}

func TestGenerateAllProgressPerBatch(t *testing.T) {
	engine := &fakeEngine{mode: ModeLocalSequential}
	b := NewBatchProcessor(engine, nil, "job1")
	b.BatchSize = 10

	var reports []int
	b.Progress = func(completed, total int) {
		if total != 25 {
			t.Fatalf("progress total = %d", total)
		}
		reports = append(reports, completed)
	}

	if _, err := b.GenerateAll(context.Background(), promptScenes(25), t.TempDir()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	want := []int{10, 20, 25}
	if len(reports) != len(want) {
		t.Fatalf("progress reports = %v; want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Fatalf("progress reports = %v; want %v", reports, want)
		}
	}
}

func TestReuseSkipsEngine(t *testing.T) {
	engine := &fakeEngine{mode: ModeLocalSequential}
	index := newBatchIndex(t)
	b := NewBatchProcessor(engine, index, "job2")
	b.Reuse = func(sceneID int, prompt, existingPath string) bool { return true }
	dir := t.TempDir()

	scenes := promptScenes(1)

	// First pass populates the cache.
	first, err := b.GenerateAll(context.Background(), scenes, dir)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if engine.calls() != 1 {
		t.Fatalf("engine calls after first pass = %d", engine.calls())
	}

	// Second pass with the identical prompt reuses the cached file.
	second, err := b.GenerateAll(context.Background(), scenes, t.TempDir())
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if engine.calls() != 1 {
		t.Fatalf("engine ran again despite a cache hit: %d calls", engine.calls())
	}
	if second[1] != first[1] {
		t.Fatalf("reuse returned %s; want the cached %s", second[1], first[1])
	}
}

func TestReuseDeclinedGeneratesFresh(t *testing.T) {
	engine := &fakeEngine{mode: ModeLocalSequential}
	index := newBatchIndex(t)
	b := NewBatchProcessor(engine, index, "job2")
	b.Reuse = func(sceneID int, prompt, existingPath string) bool { return false }

	scenes := promptScenes(1)
	if _, err := b.GenerateAll(context.Background(), scenes, t.TempDir()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if _, err := b.GenerateAll(context.Background(), scenes, t.TempDir()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if engine.calls() != 2 {
		t.Fatalf("engine calls = %d; declined reuse must regenerate", engine.calls())
	}
}

func TestNoReuseFuncDisablesLookup(t *testing.T) {
	engine := &fakeEngine{mode: ModeLocalSequential}
	index := newBatchIndex(t)
	b := NewBatchProcessor(engine, index, "job2")
	// Reuse left nil.

	scenes := promptScenes(1)
	if _, err := b.GenerateAll(context.Background(), scenes, t.TempDir()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if _, err := b.GenerateAll(context.Background(), scenes, t.TempDir()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if engine.calls() != 2 {
		t.Fatalf("engine calls = %d; nil Reuse must never reuse", engine.calls())
	}
}

func TestApplyAnchor(t *testing.T) {
	b := NewBatchProcessor(&fakeEngine{}, nil, "job")
	b.styleAnchor = "cinematic lighting"

	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{"appends", "a red fox", "a red fox, cinematic lighting"},
		{"already anchored", "a red fox, cinematic lighting", "a red fox, cinematic lighting"},
		{"empty prompt", "", "cinematic lighting"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := b.applyAnchor(c.prompt); got != c.want {
				t.Fatalf("applyAnchor(%q) = %q; want %q", c.prompt, got, c.want)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	cases := []struct {
		name  string
		count int
		size  int
		want  []int
	}{
		{"exact", 20, 10, []int{10, 10}},
		{"remainder", 25, 10, []int{10, 10, 5}},
		{"single short batch", 3, 10, []int{3}},
		{"empty", 0, 10, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := partition(promptScenes(c.count), c.size)
			if len(got) != len(c.want) {
				t.Fatalf("got %d batches; want %d", len(got), len(c.want))
			}
			id := 1
			for i, batch := range got {
				if len(batch) != c.want[i] {
					t.Fatalf("batch %d has %d scenes; want %d", i, len(batch), c.want[i])
				}
				for _, s := range batch {
					if s.SceneID != id {
						t.Fatalf("batch order broken at scene %d", s.SceneID)
					}
					id++
				}
			}
		})
	}
}

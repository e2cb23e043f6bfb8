package tts

import (
	"os"
	"path/filepath"
	"testing"

	"articlecast/types"
)

func plannedScenes(n int) []types.Scene {
	scenes := make([]types.Scene, n)
	for i := range scenes {
		scenes[i] = types.Scene{SceneID: i + 1, Stage: types.StageCore, DurationSec: 3.0}
	}
	return scenes
}

func TestCorrectMissingAudioFallsBack(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "missing1.mp3"),
		filepath.Join(dir, "missing2.mp3"),
	}
	got := NewCorrector().Correct(plannedScenes(2), paths)
	for _, s := range got {
		if s.DurationSec != emptyFallbackSec {
			t.Fatalf("scene %d duration = %v; want the %vs fallback", s.SceneID, s.DurationSec, emptyFallbackSec)
		}
	}
}

func TestCorrectEmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.mp3")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	got := NewCorrector().Correct(plannedScenes(1), []string{path})
	if got[0].DurationSec != emptyFallbackSec {
		t.Fatalf("duration = %v; want %v for an empty file", got[0].DurationSec, emptyFallbackSec)
	}
}

func TestCorrectMismatchKeepsOverlapOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.mp3")

	// More scenes than audio: the tail keeps its planned duration.
	got := NewCorrector().Correct(plannedScenes(3), []string{path})
	if got[0].DurationSec != emptyFallbackSec {
		t.Fatalf("scene 1 duration = %v", got[0].DurationSec)
	}
	if got[1].DurationSec != 3.0 || got[2].DurationSec != 3.0 {
		t.Fatalf("tail scenes changed: %v, %v", got[1].DurationSec, got[2].DurationSec)
	}

	// More audio than scenes must not panic.
	got = NewCorrector().Correct(plannedScenes(1), []string{path, path, path})
	if len(got) != 1 {
		t.Fatalf("got %d scenes; want 1", len(got))
	}
}

func TestCorrectDoesNotMutateInput(t *testing.T) {
	scenes := plannedScenes(2)
	dir := t.TempDir()
	_ = NewCorrector().Correct(scenes, []string{
		filepath.Join(dir, "a.mp3"),
		filepath.Join(dir, "b.mp3"),
	})
	if scenes[0].DurationSec != 3.0 {
		t.Fatalf("input scenes mutated: %v", scenes[0].DurationSec)
	}
}

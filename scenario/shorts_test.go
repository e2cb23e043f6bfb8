package scenario

import (
	"testing"

	"articlecast/config"
	"articlecast/types"
)

func stageScene(id int, stage types.Stage, dur float64) types.Scene {
	return types.Scene{SceneID: id, Stage: stage, Narration: "n", DurationSec: dur}
}

func TestShortsBuildKeepsLongFormIDs(t *testing.T) {
	scenes := []types.Scene{
		stageScene(1, types.StageHook, 3),
		stageScene(2, types.StageHook, 2),
		stageScene(3, types.StageCore, 4),
		stageScene(4, types.StageCTA, 2),
	}
	got := NewShortsBuilder().Build(scenes)
	if len(got) == 0 {
		t.Fatal("empty shorts cut")
	}
	longIDs := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for i, s := range got {
		if !longIDs[s.SceneID] {
			t.Fatalf("scene %d has id %d, not a long-form id", i, s.SceneID)
		}
	}
}

func TestShortsBuildRespectsStageBudget(t *testing.T) {
	var scenes []types.Scene
	id := 1
	for _, st := range types.StageOrder {
		for i := 0; i < 10; i++ {
			scenes = append(scenes, stageScene(id, st, 0.5))
			id++
		}
	}
	got := NewShortsBuilder().Build(scenes)

	counts := map[types.Stage]int{}
	for _, s := range got {
		counts[s.Stage]++
	}
	for st, n := range counts {
		budget, ok := config.ShortsStageBudget[string(st)]
		if !ok {
			budget = 2
		}
		if n > budget {
			t.Fatalf("stage %q selected %d scenes; budget %d", st, n, budget)
		}
	}
}

func TestShortsBuildPicksShortestPerStage(t *testing.T) {
	scenes := []types.Scene{
		stageScene(1, types.StageCTA, 6),
		stageScene(2, types.StageCTA, 1),
		stageScene(3, types.StageCTA, 5),
	}
	got := NewShortsBuilder().Build(scenes)

	budget := config.ShortsStageBudget[string(types.StageCTA)]
	if len(got) != budget {
		t.Fatalf("selected %d scenes; want %d", len(got), budget)
	}
	if got[0].SceneID != 2 {
		t.Fatalf("shortest scene not selected first: got id %d", got[0].SceneID)
	}
}

func TestShortsBuildFollowsStageOrder(t *testing.T) {
	// Input deliberately scrambled.
	scenes := []types.Scene{
		stageScene(1, types.StageCTA, 1),
		stageScene(2, types.StageHook, 1),
		stageScene(3, types.StageTwist, 1),
		stageScene(4, types.StageProblem, 1),
		stageScene(5, types.StageCore, 1),
	}
	got := NewShortsBuilder().Build(scenes)

	rank := map[types.Stage]int{}
	for i, st := range types.StageOrder {
		rank[st] = i
	}
	last := -1
	for _, s := range got {
		if rank[s.Stage] < last {
			t.Fatalf("stage %q out of order", s.Stage)
		}
		last = rank[s.Stage]
	}
}

func TestShortsBuildCapsDuration(t *testing.T) {
	var scenes []types.Scene
	for i := 1; i <= 50; i++ {
		scenes = append(scenes, stageScene(i, types.StageCore, 6))
	}
	got := NewShortsBuilder().Build(scenes)

	var total float64
	for _, s := range got {
		total += s.DurationSec
	}
	if total > config.ShortsDurationSec {
		t.Fatalf("shorts cut runs %.1fs; cap is %.0fs", total, config.ShortsDurationSec)
	}
}

func TestShortsBuildInvalidStageFallsToCore(t *testing.T) {
	scenes := []types.Scene{
		{SceneID: 1, Stage: "intro", DurationSec: 2},
	}
	got := NewShortsBuilder().Build(scenes)
	if len(got) != 1 {
		t.Fatalf("scene with unknown stage dropped")
	}
}

func TestShortsBuildEmptyInput(t *testing.T) {
	if got := NewShortsBuilder().Build(nil); got != nil {
		t.Fatalf("want nil for empty input, got %d scenes", len(got))
	}
}

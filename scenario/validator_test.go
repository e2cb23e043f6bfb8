package scenario

import (
	"math"
	"testing"

	"articlecast/config"
	"articlecast/types"
)

func makeScenes(n int, dur float64) []types.Scene {
	scenes := make([]types.Scene, n)
	for i := range scenes {
		scenes[i] = types.Scene{
			SceneID:     100 + i, // deliberately wrong, validator renumbers
			Stage:       types.StageCore,
			Narration:   "n",
			DurationSec: dur,
		}
	}
	return scenes
}

func TestValidateAndFixRenumbers(t *testing.T) {
	sc := types.Scenario{Scenes: makeScenes(5, 4.0), Title: "t"}
	got := ValidateAndFix(sc)
	for i, s := range got.Scenes {
		if s.SceneID != i+1 {
			t.Fatalf("scene %d has id %d; want %d", i, s.SceneID, i+1)
		}
	}
}

func TestValidateAndFixNormalizes(t *testing.T) {
	sc := types.Scenario{Scenes: []types.Scene{
		{Stage: "intro", DurationSec: -1},
		{Stage: types.StageHook, DurationSec: 0},
	}}
	got := ValidateAndFix(sc)
	if got.Scenes[0].Stage != types.StageCore {
		t.Fatalf("invalid stage not mapped to core: %q", got.Scenes[0].Stage)
	}
	for _, s := range got.Scenes {
		if s.DurationSec <= 0 {
			t.Fatalf("scene %d kept non-positive duration %.1f", s.SceneID, s.DurationSec)
		}
	}
}

func TestFixDurationInsideWindowUntouched(t *testing.T) {
	// 75 scenes at 4s = 300s, exactly on target.
	scenes := makeScenes(75, 4.0)
	got := fixDuration(scenes)
	for _, s := range got {
		if s.DurationSec != 4.0 {
			t.Fatalf("duration changed inside tolerance window: %.1f", s.DurationSec)
		}
	}
}

func TestFixDurationRescales(t *testing.T) {
	cases := []struct {
		name    string
		count   int
		dur     float64
		wantDur float64
	}{
		// 60 scenes at 10s = 600s, ratio 0.5, but 10*0.5=5 is within clamp.
		{"too long", 60, 10.0, 5.0},
		// 100 scenes at 1.5s = 150s, ratio 2, 1.5*2=3.
		{"too short", 100, 1.5, 3.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := fixDuration(makeScenes(c.count, c.dur))
			for _, s := range got {
				if math.Abs(s.DurationSec-c.wantDur) > 0.05 {
					t.Fatalf("duration = %.2f; want %.2f", s.DurationSec, c.wantDur)
				}
			}
		})
	}
}

func TestFixDurationClampsToSceneRange(t *testing.T) {
	// 30 scenes at 20s = 600s, ratio 0.5 makes 10s, clamped to the max.
	got := fixDuration(makeScenes(30, 20.0))
	for _, s := range got {
		if s.DurationSec > config.SceneMaxSec {
			t.Fatalf("duration %.1f exceeds max %.1f", s.DurationSec, float64(config.SceneMaxSec))
		}
	}

	// 600 scenes at 5s = 3000s, ratio 0.1 makes 0.5s, clamped to the min.
	got = fixDuration(makeScenes(600, 5.0))
	for _, s := range got {
		if s.DurationSec < config.SceneMinSec {
			t.Fatalf("duration %.1f below min %.1f", s.DurationSec, float64(config.SceneMinSec))
		}
	}
}

func TestValidateAndFixEmptyScenario(t *testing.T) {
	got := ValidateAndFix(types.Scenario{})
	if len(got.Scenes) != 0 {
		t.Fatalf("empty scenario grew scenes: %d", len(got.Scenes))
	}
}

func TestValidateAndFixDoesNotMutateInput(t *testing.T) {
	scenes := makeScenes(3, 1.0)
	sc := types.Scenario{Scenes: scenes}
	_ = ValidateAndFix(sc)
	if scenes[0].SceneID != 100 {
		t.Fatalf("input slice was mutated: id %d", scenes[0].SceneID)
	}
}

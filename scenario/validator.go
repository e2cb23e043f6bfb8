package scenario

import (
	"log"
	"math"

	"articlecast/config"
	"articlecast/types"
)

// ValidateAndFix renumbers scene ids from 1, rescales durations toward
// the target length, and warns when the stage order regresses. It never
// rewrites narration.
func ValidateAndFix(sc types.Scenario) types.Scenario {
	if len(sc.Scenes) == 0 {
		log.Printf("Warning: validator got an empty scenario")
		return sc
	}

	scenes := make([]types.Scene, len(sc.Scenes))
	copy(scenes, sc.Scenes)

	for i := range scenes {
		scenes[i].SceneID = i + 1
		scenes[i].Normalize()
	}
	scenes = fixDuration(scenes)
	warnStageOrder(scenes)

	sc.Scenes = scenes
	log.Printf("Validator done: %d scenes, %.1fs total", len(scenes), (&sc).TotalDuration())
	return sc
}

// fixDuration rescales scene durations proportionally when the total
// falls outside the target window, clamping each scene to the allowed
// range.
func fixDuration(scenes []types.Scene) []types.Scene {
	var total float64
	for _, s := range scenes {
		total += s.DurationSec
	}

	lower := config.TargetDurationSec - config.DurationToleranceSec
	upper := config.TargetDurationSec + config.DurationToleranceSec
	if total >= lower && total <= upper {
		return scenes
	}

	ratio := 1.0
	if total > 0 {
		ratio = config.TargetDurationSec / total
	}
	log.Printf("Rescaling total duration %.1fs toward %.0fs (ratio %.4f)", total, config.TargetDurationSec, ratio)

	for i := range scenes {
		raw := scenes[i].DurationSec * ratio
		clamped := math.Max(config.SceneMinSec, math.Min(config.SceneMaxSec, raw))
		scenes[i].DurationSec = math.Round(clamped*10) / 10
	}
	return scenes
}

// warnStageOrder logs the first scene whose stage steps backwards in
// the hook, problem, core, twist, cta progression. The order is not
// corrected because reordering would change the narration's meaning.
func warnStageOrder(scenes []types.Scene) {
	rank := map[types.Stage]int{}
	for i, st := range types.StageOrder {
		rank[st] = i
	}

	last := -1
	for _, s := range scenes {
		idx, ok := rank[s.Stage]
		if !ok {
			continue
		}
		if idx < last {
			log.Printf("Warning: stage order regresses at scene %d: %q after %q",
				s.SceneID, s.Stage, types.StageOrder[last])
			return
		}
		last = idx
	}
}

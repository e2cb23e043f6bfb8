package scenario

import (
	"log"
	"sort"

	"articlecast/config"
	"articlecast/types"
)

// ShortsBuilder condenses a long-form scenario into a sub-60-second
// teaser cut. Pure selection, no engine calls. Selected scenes keep
// their long-form scene ids so image and audio lookups by id keep
// working on the shorts cut.
type ShortsBuilder struct{}

func NewShortsBuilder() *ShortsBuilder { return &ShortsBuilder{} }

// Build picks scenes per stage budget, shortest first within a stage
// for tempo, ordered by stage progression, capped at the shorts length.
func (ShortsBuilder) Build(scenes []types.Scene) []types.Scene {
	if len(scenes) == 0 {
		log.Printf("Warning: shorts builder got an empty scenario")
		return nil
	}

	byStage := map[types.Stage][]types.Scene{}
	for _, s := range scenes {
		st := s.Stage
		if !st.Valid() {
			st = types.StageCore
		}
		byStage[st] = append(byStage[st], s)
	}
	for st := range byStage {
		group := byStage[st]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].DurationSec < group[j].DurationSec
		})
	}

	var selected []types.Scene
	for _, st := range types.StageOrder {
		budget, ok := config.ShortsStageBudget[string(st)]
		if !ok {
			budget = 2
		}
		group := byStage[st]
		if len(group) > budget {
			group = group[:budget]
		}
		selected = append(selected, group...)
	}

	selected = capToDuration(selected, config.ShortsDurationSec)

	var total float64
	for _, s := range selected {
		total += s.DurationSec
	}
	log.Printf("Shorts scenario: %d scenes, %.1fs total", len(selected), total)
	return selected
}

// capToDuration keeps scenes up to, but not past, the duration limit.
func capToDuration(scenes []types.Scene, maxSec float64) []types.Scene {
	var result []types.Scene
	total := 0.0
	for _, s := range scenes {
		if total+s.DurationSec > maxSec {
			break
		}
		result = append(result, s)
		total += s.DurationSec
	}
	return result
}

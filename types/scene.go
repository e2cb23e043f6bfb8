package types

// Stage labels the narrative role of a scene within a scenario.
type Stage string

const (
	StageHook    Stage = "hook"
	StageProblem Stage = "problem"
	StageCore    Stage = "core"
	StageTwist   Stage = "twist"
	StageCTA     Stage = "cta"
)

// StageOrder is the expected narrative progression of a scenario.
var StageOrder = []Stage{StageHook, StageProblem, StageCore, StageTwist, StageCTA}

// Valid reports whether s is one of the known stage tags.
func (s Stage) Valid() bool {
	switch s {
	case StageHook, StageProblem, StageCore, StageTwist, StageCTA:
		return true
	}
	return false
}

// Scene is the atomic unit of generation work: one narrative beat with its
// own narration, display duration, and image prompt. SceneID is 1-based.
type Scene struct {
	SceneID     int     `json:"scene_id"`
	Stage       Stage   `json:"stage"`
	Narration   string  `json:"narration"`
	DurationSec float64 `json:"duration_sec"`
	ImagePrompt string  `json:"image_prompt"`
	TextOverlay string  `json:"text_overlay"`
}

// Normalize fills missing fields with defaults: unknown stage tags become
// "core" and a non-positive duration becomes 3 seconds.
func (s *Scene) Normalize() {
	if !s.Stage.Valid() {
		s.Stage = StageCore
	}
	if s.DurationSec <= 0 {
		s.DurationSec = 3.0
	}
}

// Scenario is a generated script: an ordered list of scenes plus the video
// title in the scenario's source language.
type Scenario struct {
	Scenes []Scene `json:"scenes"`
	Title  string  `json:"title"`
}

// TotalDuration returns the summed scene durations in seconds.
func (sc *Scenario) TotalDuration() float64 {
	var total float64
	for _, s := range sc.Scenes {
		total += s.DurationSec
	}
	return total
}

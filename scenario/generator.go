package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"articlecast/config"
	"articlecast/costs"
	"articlecast/types"
)

const systemPrompt = `You are a YouTube short-form content writer. Create a highly engaging 5-minute video scenario.

Return ONLY valid JSON (no markdown, no explanation):
{
  "title_ko": "클릭유발형 유튜브 제목 30자이내",
  "scenes": [
    {
      "scene_id": 1,
      "stage": "hook",
      "narration": "한국어 내레이션 최대 15단어",
      "duration_sec": 3,
      "image_prompt": "English image prompt, vivid and specific",
      "text_overlay": "핵심자막10자"
    }
  ]
}

Rules:
1. stage: hook | problem | core | twist | cta
2. Structure: hook(5~10) → problem(10~15) → core(40~60) → twist(10~15) → cta(5~10)
3. narration: Korean ONLY, max 15 words, punchy
4. duration_sec: 2~4 per scene
5. Total scenes: 80~100 (NEVER below 60)
6. Total duration sum: ~300 seconds
7. image_prompt: English ONLY, no real person names
8. text_overlay: Korean, max 10 characters
9. title_ko: under 30 chars, urgency/curiosity, include numbers if possible`

// minScenes is the smallest scenario the generator accepts before
// asking the engine to try again.
const minScenes = 60

// Generator produces a validated scenario through an Engine, retrying
// when the output fails the sanity checks.
type Generator struct {
	engine Engine
	ledger *costs.Ledger
}

func NewGenerator(engine Engine, ledger *costs.Ledger) *Generator {
	return &Generator{engine: engine, ledger: ledger}
}

// Generate runs up to ScenarioMaxRetries attempts, feeding detected
// issues back into the prompt. When every attempt has issues the last
// parseable result is returned rather than failing the whole run.
func (g *Generator) Generate(ctx context.Context, pageText, focus string) (types.Scenario, error) {
	var (
		last    *types.Scenario
		issues  []string
		lastErr error
	)

	for attempt := 1; attempt <= config.ScenarioMaxRetries; attempt++ {
		log.Printf("Scenario generation attempt %d/%d", attempt, config.ScenarioMaxRetries)

		raw, usage, err := g.engine.Complete(ctx, systemPrompt, buildUserPrompt(pageText, focus, issues))
		if err != nil {
			lastErr = err
			log.Printf("Warning: scenario engine call failed (attempt %d): %v", attempt, err)
			if ctx.Err() != nil {
				return types.Scenario{}, ctx.Err()
			}
			continue
		}
		if g.ledger != nil {
			g.ledger.AddText(usage.InputTokens, usage.OutputTokens)
		}

		scenario, err := parseScenario(raw)
		if err != nil {
			lastErr = err
			log.Printf("Warning: could not parse scenario (attempt %d): %v", attempt, err)
			continue
		}

		last = &scenario
		issues = checkSceneIssues(scenario.Scenes)
		if len(issues) == 0 {
			fixed := ValidateAndFix(scenario)
			log.Printf("Scenario generated: %d scenes, %.1fs total", len(fixed.Scenes), fixed.TotalDuration())
			return fixed, nil
		}
		log.Printf("Warning: scenario rejected (attempt %d): %s", attempt, strings.Join(issues, " / "))
	}

	if last != nil {
		log.Printf("Warning: retries exhausted, keeping last result with %d scenes", len(last.Scenes))
		return ValidateAndFix(*last), nil
	}
	return types.Scenario{}, fmt.Errorf("scenario generation failed: %w", lastErr)
}

func buildUserPrompt(pageText, focus string, issues []string) string {
	var parts []string
	if focus != "" {
		parts = append(parts, fmt.Sprintf("[Focus topic]: %s", focus))
	}
	parts = append(parts, fmt.Sprintf("[Article content]:\n%s", pageText))
	if len(issues) > 0 {
		parts = append(parts, fmt.Sprintf("[Problems in previous output, MUST fix]: %s", strings.Join(issues, " | ")))
	}
	return strings.Join(parts, "\n\n")
}

// parseScenario decodes the engine output, tolerating markdown fences
// around the JSON object, and normalizes every scene.
func parseScenario(raw string) (types.Scenario, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return types.Scenario{}, fmt.Errorf("no JSON object in engine output")
	}

	var parsed struct {
		TitleKO string        `json:"title_ko"`
		Scenes  []types.Scene `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return types.Scenario{}, fmt.Errorf("decode scenario JSON: %w", err)
	}
	if parsed.Scenes == nil {
		return types.Scenario{}, fmt.Errorf("scenario JSON has no scenes")
	}
	if parsed.TitleKO == "" {
		parsed.TitleKO = config.UntitledDirName
	}

	for i := range parsed.Scenes {
		if parsed.Scenes[i].SceneID == 0 {
			parsed.Scenes[i].SceneID = i + 1
		}
		parsed.Scenes[i].Normalize()
	}
	return types.Scenario{Scenes: parsed.Scenes, Title: parsed.TitleKO}, nil
}

// checkSceneIssues lists the problems that warrant a regeneration.
func checkSceneIssues(scenes []types.Scene) []string {
	var issues []string
	if len(scenes) < minScenes {
		issues = append(issues, fmt.Sprintf("too few scenes (%d, need at least %d)", len(scenes), minScenes))
	}
	if len(scenes) > 0 {
		var total float64
		for _, s := range scenes {
			total += s.DurationSec
		}
		if avg := total / float64(len(scenes)); avg > 5.0 {
			issues = append(issues, fmt.Sprintf("average scene too long (%.1fs, max 5s)", avg))
		}
	}
	return issues
}

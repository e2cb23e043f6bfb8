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

const sceneTranslateSystem = `You are a professional Korean-to-English translator for YouTube video scripts.
Translate the "narration" and "text_overlay" fields from Korean to natural, engaging English.

Rules:
- narration: max 15 words, punchy and fast-paced
- text_overlay: max 5 words, ultra-compressed keyword
- scene_id: keep exactly as-is (integer)
- Return ONLY valid JSON: {"translations": [{"scene_id": N, "narration": "...", "text_overlay": "..."}, ...]}`

const titleTranslateSystem = `Translate this Korean YouTube title to English.
Make it catchy, click-worthy, and under 70 characters.
Include numbers if present. Create urgency or curiosity.
Return ONLY the English title string. No quotes. No JSON.`

// Translator localizes narration, overlays and the title. Image
// prompts are already English and pass through untouched.
type Translator struct {
	engine Engine
	ledger *costs.Ledger

	// ChunkSize is how many scenes go into one engine call.
	ChunkSize int
}

func NewTranslator(engine Engine, ledger *costs.Ledger) *Translator {
	return &Translator{engine: engine, ledger: ledger, ChunkSize: config.TranslateChunkScenes}
}

// Translate returns localized copies of the scenes plus the localized
// title. A chunk that fails to translate keeps its source text so a
// flaky engine degrades the output instead of failing the stage.
func (t *Translator) Translate(ctx context.Context, scenes []types.Scene, title string) ([]types.Scene, string, error) {
	out := make([]types.Scene, 0, len(scenes))
	for start := 0; start < len(scenes); start += t.ChunkSize {
		end := start + t.ChunkSize
		if end > len(scenes) {
			end = len(scenes)
		}
		out = append(out, t.translateChunk(ctx, scenes[start:end])...)
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
	}

	titleEN, err := t.translateTitle(ctx, title)
	if err != nil {
		log.Printf("Warning: title translation failed, keeping source title: %v", err)
		titleEN = title
	}
	log.Printf("Translated %d scenes", len(out))
	return out, titleEN, nil
}

type translatedScene struct {
	SceneID     int    `json:"scene_id"`
	Narration   string `json:"narration"`
	TextOverlay string `json:"text_overlay"`
}

// translateChunk sends only the translatable fields and merges the
// result back onto copies of the source scenes.
func (t *Translator) translateChunk(ctx context.Context, chunk []types.Scene) []types.Scene {
	payload := make([]translatedScene, len(chunk))
	for i, s := range chunk {
		payload[i] = translatedScene{SceneID: s.SceneID, Narration: s.Narration, TextOverlay: s.TextOverlay}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Warning: encode translation chunk: %v", err)
		return copyScenes(chunk)
	}

	raw, usage, err := t.engine.Complete(ctx, sceneTranslateSystem, string(body))
	if err != nil {
		log.Printf("Warning: translation chunk failed, keeping source text: %v", err)
		return copyScenes(chunk)
	}
	if t.ledger != nil {
		t.ledger.AddText(usage.InputTokens, usage.OutputTokens)
	}

	translations, err := parseTranslations(raw)
	if err != nil {
		log.Printf("Warning: could not parse translation output, keeping source text: %v", err)
		return copyScenes(chunk)
	}

	byID := make(map[int]translatedScene, len(translations))
	for _, tr := range translations {
		byID[tr.SceneID] = tr
	}

	out := copyScenes(chunk)
	for i := range out {
		if tr, ok := byID[out[i].SceneID]; ok {
			if tr.Narration != "" {
				out[i].Narration = tr.Narration
			}
			if tr.TextOverlay != "" {
				out[i].TextOverlay = tr.TextOverlay
			}
		}
	}
	return out
}

func (t *Translator) translateTitle(ctx context.Context, title string) (string, error) {
	raw, usage, err := t.engine.Complete(ctx, titleTranslateSystem, title)
	if err != nil {
		return "", err
	}
	if t.ledger != nil {
		t.ledger.AddText(usage.InputTokens, usage.OutputTokens)
	}
	out := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if out == "" {
		return "", fmt.Errorf("engine returned an empty title")
	}
	return out, nil
}

func parseTranslations(raw string) ([]translatedScene, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in engine output")
	}
	var parsed struct {
		Translations []translatedScene `json:"translations"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, err
	}
	return parsed.Translations, nil
}

func copyScenes(scenes []types.Scene) []types.Scene {
	out := make([]types.Scene, len(scenes))
	copy(out, scenes)
	return out
}

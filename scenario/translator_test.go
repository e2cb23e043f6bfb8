package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"articlecast/types"
)

func koreanScenes(n int) []types.Scene {
	scenes := make([]types.Scene, n)
	for i := range scenes {
		scenes[i] = types.Scene{
			SceneID:     i + 1,
			Stage:       types.StageCore,
			Narration:   fmt.Sprintf("내레이션 %d", i+1),
			DurationSec: 3,
			ImagePrompt: "an english prompt",
			TextOverlay: fmt.Sprintf("자막 %d", i+1),
		}
	}
	return scenes
}

func translationJSON(scenes []types.Scene) string {
	items := make([]map[string]any, len(scenes))
	for i, s := range scenes {
		items[i] = map[string]any{
			"scene_id":     s.SceneID,
			"narration":    fmt.Sprintf("narration %d", s.SceneID),
			"text_overlay": fmt.Sprintf("overlay %d", s.SceneID),
		}
	}
	body, _ := json.Marshal(map[string]any{"translations": items})
	return string(body)
}

// chunkEngine answers scene chunks with proper translations and the
// title call with a fixed string.
type chunkEngine struct {
	failChunk int // 1-based chunk call to fail, 0 for none
	calls     int
}

func (e *chunkEngine) Complete(ctx context.Context, system, user string) (string, Usage, error) {
	if system == titleTranslateSystem {
		return `"English Title"`, Usage{}, nil
	}
	e.calls++
	if e.calls == e.failChunk {
		return "", Usage{}, errors.New("engine down")
	}
	var payload []translatedScene
	if err := json.Unmarshal([]byte(user), &payload); err != nil {
		return "", Usage{}, err
	}
	scenes := make([]types.Scene, len(payload))
	for i, p := range payload {
		scenes[i] = types.Scene{SceneID: p.SceneID}
	}
	return translationJSON(scenes), Usage{InputTokens: 10, OutputTokens: 10}, nil
}

func TestTranslateChunksAndMerges(t *testing.T) {
	engine := &chunkEngine{}
	tr := NewTranslator(engine, nil)
	tr.ChunkSize = 20

	scenes := koreanScenes(45)
	got, titleEN, err := tr.Translate(context.Background(), scenes, "한국어 제목")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if engine.calls != 3 {
		t.Fatalf("expected 3 chunk calls for 45 scenes, got %d", engine.calls)
	}
	if len(got) != 45 {
		t.Fatalf("got %d scenes; want 45", len(got))
	}
	if titleEN != "English Title" {
		t.Fatalf("title = %q", titleEN)
	}
	for _, s := range got {
		if s.Narration != fmt.Sprintf("narration %d", s.SceneID) {
			t.Fatalf("scene %d narration not translated: %q", s.SceneID, s.Narration)
		}
		if s.ImagePrompt != "an english prompt" {
			t.Fatalf("scene %d image prompt changed: %q", s.SceneID, s.ImagePrompt)
		}
	}
}

func TestTranslateFailedChunkKeepsSource(t *testing.T) {
	engine := &chunkEngine{failChunk: 2}
	tr := NewTranslator(engine, nil)
	tr.ChunkSize = 10

	scenes := koreanScenes(30)
	got, _, err := tr.Translate(context.Background(), scenes, "제목")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}

	// First chunk translated, second kept source, third translated.
	if got[0].Narration != "narration 1" {
		t.Fatalf("scene 1 not translated: %q", got[0].Narration)
	}
	if got[10].Narration != "내레이션 11" {
		t.Fatalf("scene 11 should keep source text, got %q", got[10].Narration)
	}
	if got[20].Narration != "narration 21" {
		t.Fatalf("scene 21 not translated: %q", got[20].Narration)
	}
}

func TestTranslateDoesNotMutateInput(t *testing.T) {
	engine := &chunkEngine{}
	tr := NewTranslator(engine, nil)
	scenes := koreanScenes(5)
	_, _, err := tr.Translate(context.Background(), scenes, "제목")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if scenes[0].Narration != "내레이션 1" {
		t.Fatalf("source scenes were mutated: %q", scenes[0].Narration)
	}
}

// titleFailEngine translates chunks but cannot translate the title.
type titleFailEngine struct{ chunkEngine }

func (e *titleFailEngine) Complete(ctx context.Context, system, user string) (string, Usage, error) {
	if system == titleTranslateSystem {
		return "", Usage{}, errors.New("title engine down")
	}
	return e.chunkEngine.Complete(ctx, system, user)
}

func TestTranslateTitleFailureKeepsSourceTitle(t *testing.T) {
	tr := NewTranslator(&titleFailEngine{}, nil)
	_, titleEN, err := tr.Translate(context.Background(), koreanScenes(3), "한국어 제목")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if titleEN != "한국어 제목" {
		t.Fatalf("title = %q; want the source title kept", titleEN)
	}
}

func TestTranslateEmptyFieldKeepsSource(t *testing.T) {
	// Engine returns an empty narration for scene 2.
	engine := &literalEngine{response: `{"translations": [
		{"scene_id": 1, "narration": "one", "text_overlay": "o1"},
		{"scene_id": 2, "narration": "", "text_overlay": "o2"}
	]}`}
	tr := NewTranslator(engine, nil)
	got, _, err := tr.Translate(context.Background(), koreanScenes(2), "제목")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got[0].Narration != "one" {
		t.Fatalf("scene 1 narration = %q", got[0].Narration)
	}
	if got[1].Narration != "내레이션 2" {
		t.Fatalf("scene 2 empty translation should keep source, got %q", got[1].Narration)
	}
	if got[1].TextOverlay != "o2" {
		t.Fatalf("scene 2 overlay = %q", got[1].TextOverlay)
	}
}

type literalEngine struct{ response string }

func (e *literalEngine) Complete(ctx context.Context, system, user string) (string, Usage, error) {
	if system == titleTranslateSystem {
		return "t", Usage{}, nil
	}
	return e.response, Usage{}, nil
}

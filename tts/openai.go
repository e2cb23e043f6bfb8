// Package tts renders narration audio per scene and corrects scene
// durations to the measured audio lengths.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"articlecast/costs"
	"articlecast/types"
)

const openaiSpeechEndpoint = "https://api.openai.com/v1/audio/speech"

// OpenAIEngine synthesizes via the OpenAI Speech API.
// Endpoint: POST https://api.openai.com/v1/audio/speech
// Request: {"model": "tts-1", "input": "...", "voice": "...", "response_format": "mp3"}
// Response body is the raw mp3.
type OpenAIEngine struct {
	apiKey   string
	voice    string
	endpoint string
	client   *http.Client
	ledger   *costs.Ledger
}

func NewOpenAIEngine(apiKey, voice string, ledger *costs.Ledger) *OpenAIEngine {
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAIEngine{
		apiKey: apiKey,
		voice:  voice,
		client: &http.Client{Timeout: 120 * time.Second},
		ledger: ledger,
	}
}

// Synthesize renders one mp3 per scene into outputDir and returns the
// paths in scene order. A scene with empty narration still produces a
// list slot so audio indexes stay aligned with scenes.
func (e *OpenAIEngine) Synthesize(ctx context.Context, scenes []types.Scene, lang, outputDir string) ([]string, error) {
	paths := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		path := filepath.Join(outputDir, fmt.Sprintf("scene_%03d_%s.mp3", scene.SceneID, lang))
		if err := e.synthesizeOne(ctx, scene.Narration, path); err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.SceneID, err)
		}
		paths = append(paths, path)
	}
	log.Printf("Synthesized %d %s narration clips", len(paths), lang)
	return paths, nil
}

func (e *OpenAIEngine) synthesizeOne(ctx context.Context, text, outputPath string) error {
	if text == "" {
		// Keep positional alignment with an empty file; the composer
		// substitutes silence for zero-length audio.
		return os.WriteFile(outputPath, nil, 0o644)
	}

	endpoint := e.endpoint
	if endpoint == "" {
		endpoint = openaiSpeechEndpoint
	}
	payload := map[string]interface{}{
		"model":           "tts-1",
		"input":           text,
		"voice":           e.voice,
		"response_format": "mp3",
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.apiKey))

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("openai speech error: status %d: %v", resp.StatusCode, body)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}

	if e.ledger != nil {
		e.ledger.AddSpeech(len([]rune(text)))
	}
	return nil
}

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
	"strings"
	"time"

	"articlecast/types"
)

// LocalEngine synthesizes via a self-hosted TTS HTTP server. Free, so
// nothing is charged.
// Endpoint: POST {base}/synthesize with {"text": "...", "lang": "..."};
// the response body is the rendered audio.
type LocalEngine struct {
	baseURL string
	client  *http.Client
}

func NewLocalEngine(baseURL string) *LocalEngine {
	return &LocalEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (e *LocalEngine) Synthesize(ctx context.Context, scenes []types.Scene, lang, outputDir string) ([]string, error) {
	paths := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		path := filepath.Join(outputDir, fmt.Sprintf("scene_%03d_%s.mp3", scene.SceneID, lang))
		if err := e.synthesizeOne(ctx, scene.Narration, lang, path); err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.SceneID, err)
		}
		paths = append(paths, path)
	}
	log.Printf("Synthesized %d %s narration clips locally", len(paths), lang)
	return paths, nil
}

func (e *LocalEngine) synthesizeOne(ctx context.Context, text, lang, outputPath string) error {
	if text == "" {
		return os.WriteFile(outputPath, nil, 0o644)
	}

	payload := map[string]string{"text": text, "lang": lang}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/synthesize", bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("local tts error: status %d", resp.StatusCode)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}

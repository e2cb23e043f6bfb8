package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// SDEngine renders via a local Stable Diffusion WebUI instance.
// Endpoint: POST {base}/sdapi/v1/txt2img
// Local generation is free, so nothing is charged to the ledger.
type SDEngine struct {
	baseURL string
	steps   int
	width   int
	height  int
	client  *http.Client
}

func NewSDEngine(baseURL string) *SDEngine {
	return &SDEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		steps:   28,
		width:   1344,
		height:  768,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (e *SDEngine) Mode() Mode { return ModeLocalSequential }

func (e *SDEngine) Generate(ctx context.Context, prompt, outputPath string) error {
	payload := map[string]interface{}{
		"prompt":          prompt,
		"negative_prompt": "text, watermark, low quality, blurry",
		"steps":           e.steps,
		"width":           e.width,
		"height":          e.height,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/sdapi/v1/txt2img", bytes.NewBuffer(b))
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
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("sd webui error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode sd webui response: %w", err)
	}
	if len(parsed.Images) == 0 {
		return fmt.Errorf("sd webui returned no images")
	}

	img, err := base64.StdEncoding.DecodeString(parsed.Images[0])
	if err != nil {
		return fmt.Errorf("decode image payload: %w", err)
	}
	if err := os.WriteFile(outputPath, img, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

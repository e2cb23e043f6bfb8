package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"articlecast/costs"
)

const dalleEndpoint = "https://api.openai.com/v1/images/generations"

// DallEEngine renders via the OpenAI Images API.
// Endpoint: POST https://api.openai.com/v1/images/generations
// Request: {"model": "dall-e-3", "prompt": "...", "size": "...", "quality": "...", "response_format": "b64_json"}
// Response: {"data": [{"b64_json": "..."}]}
type DallEEngine struct {
	apiKey   string
	quality  string // "hd" or "standard"
	size     string
	endpoint string
	client   *http.Client
	ledger   *costs.Ledger
}

func NewDallEEngine(apiKey, quality string, ledger *costs.Ledger) *DallEEngine {
	if quality != "hd" {
		quality = "standard"
	}
	return &DallEEngine{
		apiKey:  apiKey,
		quality: quality,
		size:    "1792x1024",
		client:  &http.Client{Timeout: 120 * time.Second},
		ledger:  ledger,
	}
}

func (e *DallEEngine) Mode() Mode { return ModeRemoteParallel }

func (e *DallEEngine) Generate(ctx context.Context, prompt, outputPath string) error {
	endpoint := e.endpoint
	if endpoint == "" {
		endpoint = dalleEndpoint
	}

	payload := map[string]interface{}{
		"model":           "dall-e-3",
		"prompt":          prompt,
		"n":               1,
		"size":            e.size,
		"quality":         e.quality,
		"response_format": "b64_json",
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
		return fmt.Errorf("openai images error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode openai images response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return fmt.Errorf("openai images returned no image data")
	}

	img, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return fmt.Errorf("decode image payload: %w", err)
	}
	if err := os.WriteFile(outputPath, img, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	if e.ledger != nil {
		e.ledger.AddImages(1)
	}
	return nil
}

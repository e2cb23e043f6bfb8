package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaEngine completes via a local Ollama daemon. Local inference is
// free, so Usage is always zero.
// Endpoint: POST {base}/api/generate
type OllamaEngine struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaEngine(baseURL, model string) *OllamaEngine {
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (e *OllamaEngine) Complete(ctx context.Context, system, user string) (string, Usage, error) {
	payload := map[string]interface{}{
		"model":  e.model,
		"system": system,
		"prompt": user,
		"stream": false,
		"format": "json",
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", Usage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/generate", bytes.NewBuffer(b))
	if err != nil {
		return "", Usage{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", Usage{}, fmt.Errorf("ollama error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, fmt.Errorf("decode ollama response: %w", err)
	}
	return parsed.Response, Usage{}, nil
}

package scenario

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereEngine completes via the Cohere Chat API.
// Docs: https://docs.cohere.com/reference/chat
type CohereEngine struct {
	client *cohereclient.Client
	model  string
}

func NewCohereEngine(apiKey, model string) *CohereEngine {
	if model == "" {
		model = "command-r-plus"
	}
	// Force HTTP/1.1 to avoid HTTP/2 protocol errors against the Cohere edge.
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereEngine{client: client, model: model}
}

func (e *CohereEngine) Complete(ctx context.Context, system, user string) (string, Usage, error) {
	resp, err := e.client.Chat(ctx, &cohere.ChatRequest{
		Model:    cohere.String(e.model),
		Preamble: cohere.String(system),
		Message:  user,
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("cohere chat: %w", err)
	}

	var usage Usage
	if resp.Meta != nil && resp.Meta.Tokens != nil {
		if resp.Meta.Tokens.InputTokens != nil {
			usage.InputTokens = int(*resp.Meta.Tokens.InputTokens)
		}
		if resp.Meta.Tokens.OutputTokens != nil {
			usage.OutputTokens = int(*resp.Meta.Tokens.OutputTokens)
		}
	}
	return resp.Text, usage, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-3-5-sonnet-20241022"
	maxTokens        = 4096
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnthropicGateway binds Gateway to the Anthropic Messages API.
type AnthropicGateway struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewAnthropicGateway(cfg Config) *AnthropicGateway {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AnthropicGateway{
		apiKey:  cfg.APIKey,
		baseURL: anthropicBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send performs one completion call. The call is bounded by the configured
// timeout; the response body is decoded against an explicit schema and any
// shape mismatch surfaces as MalformedResponse rather than an empty result.
func (g *AnthropicGateway) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.apiKey == "" {
		return "", NewError(ProviderError, "API key not configured")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.httpClient.Timeout)
		defer cancel()
	}

	reqBody := anthropicRequest{
		Model:     g.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewError(GatewayUnavailable, "failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", NewError(GatewayUnavailable, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", NewError(GatewayUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewError(GatewayUnavailable, "failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", NewError(ProviderError, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", NewError(MalformedResponse, "failed to parse response: %v", err)
	}
	if decoded.Error != nil {
		return "", NewError(ProviderError, "%s: %s", decoded.Error.Type, decoded.Error.Message)
	}
	if len(decoded.Content) == 0 {
		return "", NewError(MalformedResponse, "no completion content returned")
	}

	var result strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(result.String())
	if text == "" {
		return "", NewError(MalformedResponse, "completion contained no text blocks")
	}
	return text, nil
}

// withBaseURL is used by tests to point the gateway at a stub server.
func (g *AnthropicGateway) withBaseURL(url string) *AnthropicGateway {
	g.baseURL = url
	return g
}

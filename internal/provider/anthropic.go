package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

const anthropicVersion = "2023-06-01"

// anthropicMaxTokensDefault is applied when the caller leaves max_tokens
// unset; the Messages API requires the field.
const anthropicMaxTokensDefault = 1024

// anthropic speaks the Messages API. The system instruction travels in a
// dedicated top-level field; the message array carries only user/assistant
// turns.
type anthropic struct {
	baseURL string
	client  *http.Client
}

// NewAnthropic returns the Anthropic adapter.
func NewAnthropic(client *http.Client) Adapter {
	return &anthropic{
		baseURL: "https://api.anthropic.com/v1",
		client:  client,
	}
}

func (a *anthropic) Name() string        { return "anthropic" }
func (a *anthropic) DisplayName() string { return "Anthropic" }

func (a *anthropic) Models() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []veritest.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	TopP        *float64           `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *anthropic) Complete(ctx context.Context, req veritest.CompletionRequest, apiKey string) (*veritest.CompletionResult, error) {
	system, turns := splitSystem(req.Messages)

	maxTokens := anthropicMaxTokensDefault
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	body := anthropicRequest{
		Model:       req.Model,
		System:      system,
		Messages:    turns,
		MaxTokens:   maxTokens,
		Temperature: resolveTemperature(req),
		TopP:        req.TopP,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr anthropicErrorResponse
		msg := fmt.Sprintf("Anthropic API request failed with status %d", resp.StatusCode)
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = fmt.Sprintf("Anthropic API error: %s", apiErr.Error.Message)
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to parse Anthropic response: %v", err)}
	}
	if len(parsed.Content) == 0 {
		return nil, noResponseError(a.DisplayName())
	}

	// Segmented text blocks are concatenated in order, no separator.
	var content strings.Builder
	for _, block := range parsed.Content {
		content.WriteString(block.Text)
	}

	result := &veritest.CompletionResult{
		Content:      content.String(),
		Model:        parsed.Model,
		FinishReason: parsed.StopReason,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if parsed.Usage != nil {
		result.Usage = &veritest.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		}
	}
	return result, nil
}

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

// gemini speaks the generateContent API. The system instruction travels in a
// dedicated block, the assistant role is renamed to "model", and responses
// arrive as candidate parts.
type gemini struct {
	baseURL string
	client  *http.Client
}

// NewGemini returns the Google Gemini adapter.
func NewGemini(client *http.Client) Adapter {
	return &gemini{
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client:  client,
	}
}

func (g *gemini) Name() string        { return "google" }
func (g *gemini) DisplayName() string { return "Google Gemini" }

func (g *gemini) Models() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *gemini) Complete(ctx context.Context, req veritest.CompletionRequest, apiKey string) (*veritest.CompletionResult, error) {
	system, turns := splitSystem(req.Messages)

	body := geminiRequest{
		Contents: make([]geminiContent, 0, len(turns)),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     resolveTemperature(req),
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
		},
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range turns {
		role := m.Role
		if role == veritest.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, req.Model, apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr geminiErrorResponse
		msg := fmt.Sprintf("Gemini API request failed with status %d", resp.StatusCode)
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = fmt.Sprintf("Gemini API error: %s", apiErr.Error.Message)
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to parse Gemini response: %v", err)}
	}
	if len(parsed.Candidates) == 0 {
		return nil, noResponseError(g.DisplayName())
	}

	candidate := parsed.Candidates[0]
	var content strings.Builder
	for _, part := range candidate.Content.Parts {
		content.WriteString(part.Text)
	}

	result := &veritest.CompletionResult{
		Content:      content.String(),
		Model:        req.Model,
		FinishReason: candidate.FinishReason,
	}
	if parsed.UsageMetadata != nil {
		result.Usage = &veritest.Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}

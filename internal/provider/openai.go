package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// openAICompatible covers the providers that speak the OpenAI chat
// completions wire format: OpenAI itself plus Groq and Mistral. Roles pass
// through unchanged, including the system message inside the message array.
type openAICompatible struct {
	name    string
	display string
	baseURL string
	models  []string
	client  *http.Client
}

// NewOpenAI returns the OpenAI adapter.
func NewOpenAI(client *http.Client) Adapter {
	return &openAICompatible{
		name:    "openai",
		display: "OpenAI",
		baseURL: "https://api.openai.com/v1",
		models: []string{
			"gpt-4o",
			"gpt-4o-mini",
			"gpt-4-turbo",
			"gpt-3.5-turbo",
		},
		client: client,
	}
}

// NewGroq returns the Groq adapter.
func NewGroq(client *http.Client) Adapter {
	return &openAICompatible{
		name:    "groq",
		display: "Groq",
		baseURL: "https://api.groq.com/openai/v1",
		models: []string{
			"llama-3.3-70b-versatile",
			"llama-3.1-8b-instant",
			"mixtral-8x7b-32768",
		},
		client: client,
	}
}

// NewMistral returns the Mistral adapter.
func NewMistral(client *http.Client) Adapter {
	return &openAICompatible{
		name:    "mistral",
		display: "Mistral",
		baseURL: "https://api.mistral.ai/v1",
		models: []string{
			"mistral-large-latest",
			"mistral-small-latest",
			"open-mistral-nemo",
		},
		client: client,
	}
}

func (a *openAICompatible) Name() string        { return a.name }
func (a *openAICompatible) DisplayName() string { return a.display }
func (a *openAICompatible) Models() []string    { return a.models }

type openAIRequest struct {
	Model            string             `json:"model"`
	Messages         []veritest.Message `json:"messages"`
	Temperature      float64            `json:"temperature"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *openAICompatible) Complete(ctx context.Context, req veritest.CompletionRequest, apiKey string) (*veritest.CompletionResult, error) {
	body := openAIRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		Temperature:      resolveTemperature(req),
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

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
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: openAIErrorMessage(raw, resp.StatusCode, a.display)}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to parse %s response: %v", a.display, err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, noResponseError(a.display)
	}

	choice := parsed.Choices[0]
	result := &veritest.CompletionResult{
		Content:      choice.Message.Content,
		Model:        parsed.Model,
		FinishReason: choice.FinishReason,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if parsed.Usage != nil {
		result.Usage = &veritest.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return result, nil
}

func openAIErrorMessage(raw []byte, status int, display string) string {
	var apiErr openAIErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("%s API error: %s", display, apiErr.Error.Message)
	}
	return fmt.Sprintf("%s API request failed with status %d", display, status)
}

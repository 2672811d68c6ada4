// Package provider normalizes heterogeneous LLM backends behind one
// completion contract. Each adapter owns its own wire format; nothing is
// shared between variants beyond the common request/response types.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// defaultTemperature is applied by every adapter when the caller leaves
// temperature unset.
const defaultTemperature = 0.7

// Adapter is the contract every LLM provider implements.
type Adapter interface {
	// Name returns the provider identifier used in targets and credentials.
	Name() string
	// DisplayName returns the human-readable provider name used in errors.
	DisplayName() string
	// Models returns the static model catalog. No I/O.
	Models() []string
	// Complete performs one completion call against the provider.
	Complete(ctx context.Context, req veritest.CompletionRequest, apiKey string) (*veritest.CompletionResult, error)
}

// ProviderError reports a failed provider call: a non-2xx response or a
// malformed payload.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

// noResponseError is the hard failure for an empty choice/candidate list.
func noResponseError(displayName string) *ProviderError {
	return &ProviderError{Message: fmt.Sprintf("No response from %s", displayName)}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

// Defaults returns the built-in adapter set keyed by provider name.
func Defaults() map[string]Adapter {
	client := newHTTPClient()
	adapters := []Adapter{
		NewOpenAI(client),
		NewGroq(client),
		NewMistral(client),
		NewAnthropic(client),
		NewGemini(client),
	}
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return m
}

func resolveTemperature(req veritest.CompletionRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return defaultTemperature
}

// splitSystem extracts the first system message and returns the remaining
// user/assistant turns, for the providers that carry the system instruction
// in a dedicated field.
func splitSystem(messages []veritest.Message) (string, []veritest.Message) {
	var system string
	rest := make([]veritest.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == veritest.RoleSystem && system == "" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

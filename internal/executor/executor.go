// Package executor runs exactly one test case once: it resolves the target,
// invokes the right provider adapter, times the call, and validates the
// output. Adapter failures become data on the result, never faults.
package executor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/veritest-ai/veritest-be/internal/provider"
	"github.com/veritest-ai/veritest-be/internal/validation"
	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// Params is the full input for a single execution.
type Params struct {
	TestCase      veritest.TestCase
	TargetType    string
	Prompt        *veritest.PromptTarget
	Endpoint      *veritest.EndpointTarget
	Rules         []veritest.ValidationRule
	Judge         veritest.JudgeConfig
	Credentials   map[string]string
	ModelOverride *veritest.ModelOverride
}

// Executor executes single test cases against a set of provider adapters.
type Executor struct {
	providers  map[string]provider.Adapter
	httpClient *http.Client
}

// New returns an executor over the given adapter set. A nil map selects the
// built-in providers.
func New(providers map[string]provider.Adapter) *Executor {
	if providers == nil {
		providers = provider.Defaults()
	}
	return &Executor{
		providers:  providers,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Adapter returns the adapter registered under name.
func (e *Executor) Adapter(name string) (provider.Adapter, bool) {
	a, ok := e.providers[name]
	return a, ok
}

// ResolveTarget returns the effective provider and model for a prompt
// target, with the override taking precedence.
func ResolveTarget(target *veritest.PromptTarget, override *veritest.ModelOverride) (string, string) {
	if override != nil && override.Provider != "" {
		return override.Provider, override.Model
	}
	if target == nil {
		return "", ""
	}
	return target.Provider, target.Model
}

// Run executes the test case once and returns its result. The measured
// latency covers the provider call only, not validation or judging.
func (e *Executor) Run(ctx context.Context, p Params) veritest.TestResult {
	result := veritest.TestResult{
		TestCaseID:   p.TestCase.ID,
		TestCaseName: p.TestCase.Name,
		Inputs:       p.TestCase.Inputs,
	}

	output, elapsed, err := e.invoke(ctx, p)
	result.ResponseTimeMS = elapsed
	if err != nil {
		result.Error = err.Error()
		result.ValidationPassed = false
		return result
	}
	result.Output = output

	rules := effectiveRules(p)
	latency := result.ResponseTimeMS
	verdict := validation.Validate(output, rules, &latency)
	result.ValidationPassed = verdict.Passed
	result.ValidationErrors = verdict.Errors

	if p.Judge.Enabled {
		e.judge(ctx, p, output, &result)
	}

	return result
}

// invoke performs the provider or endpoint call and reports wall-clock
// latency in milliseconds.
func (e *Executor) invoke(ctx context.Context, p Params) (string, int64, error) {
	switch p.TargetType {
	case veritest.TargetTypeEndpoint:
		if p.Endpoint == nil {
			return "", 0, fmt.Errorf("endpoint target is not configured")
		}
		endpoint := provider.NewEndpoint(*p.Endpoint, e.httpClient)
		start := time.Now()
		output, err := endpoint.Call(ctx, p.TestCase.Inputs)
		return output, time.Since(start).Milliseconds(), err

	case veritest.TargetTypePrompt:
		if p.Prompt == nil {
			return "", 0, fmt.Errorf("prompt target is not configured")
		}
		providerName, model := ResolveTarget(p.Prompt, p.ModelOverride)
		adapter, ok := e.providers[providerName]
		if !ok {
			return "", 0, fmt.Errorf("unknown provider %q", providerName)
		}

		req := buildCompletionRequest(p.Prompt, model, p.TestCase.Inputs)
		start := time.Now()
		completion, err := adapter.Complete(ctx, req, p.Credentials[providerName])
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			return "", elapsed, err
		}
		return completion.Content, elapsed, nil

	default:
		return "", 0, fmt.Errorf("unknown target type %q", p.TargetType)
	}
}

func buildCompletionRequest(target *veritest.PromptTarget, model string, inputs map[string]string) veritest.CompletionRequest {
	messages := make([]veritest.Message, 0, 2)
	if target.SystemPrompt != "" {
		messages = append(messages, veritest.Message{Role: veritest.RoleSystem, Content: target.SystemPrompt})
	}
	messages = append(messages, veritest.Message{
		Role:    veritest.RoleUser,
		Content: provider.SubstituteVars(target.Template, inputs),
	})

	return veritest.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: target.Temperature,
		MaxTokens:   target.MaxTokens,
		TopP:        target.TopP,
	}
}

// effectiveRules combines the suite-level rules with the case's own
// expectations. In "rules" mode the case carries an explicit rule list; in
// "text" mode a non-empty expected output becomes a contains rule.
func effectiveRules(p Params) []veritest.ValidationRule {
	rules := make([]veritest.ValidationRule, 0, len(p.Rules)+len(p.TestCase.Rules)+1)
	rules = append(rules, p.Rules...)

	switch p.TestCase.ValidationMode {
	case veritest.ValidationModeRules:
		rules = append(rules, p.TestCase.Rules...)
	default: // "text" or unset
		if p.TestCase.ExpectedOutput != "" {
			rules = append(rules, veritest.ValidationRule{
				Type:  veritest.RuleContains,
				Value: p.TestCase.ExpectedOutput,
			})
		}
	}

	return rules
}

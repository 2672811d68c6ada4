package types

import "github.com/veritest-ai/veritest-be/pkg/veritest"

// Error represents an API error response
type Error struct {
	Code    string `json:"code" example:"INVALID_REQUEST"`
	Message string `json:"message" example:"Invalid request parameters"`
}

// ErrorResponse wraps an error
type ErrorResponse struct {
	Error Error `json:"error"`
}

// RunOptions carries the optional knobs of an execution request.
type RunOptions struct {
	ModelOverride  *veritest.ModelOverride `json:"model_override,omitempty"`
	Note           string                  `json:"note,omitempty"`
	Iterations     int                     `json:"iterations,omitempty" example:"3"`
	Tags           []string                `json:"tags,omitempty"`
	TestCaseIDs    []string                `json:"test_case_ids,omitempty"`
	Parallel       bool                    `json:"parallel,omitempty" example:"true"`
	MaxConcurrency int                     `json:"max_concurrency,omitempty" example:"5"`
	OrganizationID string                  `json:"organization_id,omitempty"`
}

// ExecuteRunRequest is the invocation input for batch and streaming
// execution. Credentials map provider names to secret key material.
type ExecuteRunRequest struct {
	TargetType  string                    `json:"target_type" binding:"required,oneof=prompt endpoint" example:"prompt"`
	Prompt      *veritest.PromptTarget    `json:"prompt,omitempty"`
	Endpoint    *veritest.EndpointTarget  `json:"endpoint,omitempty"`
	TestCases   []veritest.TestCase       `json:"test_cases" binding:"required"`
	Rules       []veritest.ValidationRule `json:"rules,omitempty"`
	Judge       veritest.JudgeConfig      `json:"judge,omitempty"`
	Credentials map[string]string         `json:"credentials,omitempty"`
	Options     RunOptions                `json:"options,omitempty"`
}

// CompareRequest identifies the two runs to diff, either by stored run IDs
// or as inline run documents.
type CompareRequest struct {
	BaselineRunID string            `json:"baseline_run_id,omitempty"`
	CompareRunID  string            `json:"compare_run_id,omitempty"`
	BaselineRun   *veritest.TestRun `json:"baseline_run,omitempty"`
	CompareRun    *veritest.TestRun `json:"compare_run,omitempty"`
}

// ProviderInfo describes one provider in the catalog.
type ProviderInfo struct {
	Name        string   `json:"name" example:"openai"`
	DisplayName string   `json:"display_name" example:"OpenAI"`
	Models      []string `json:"models"`
}

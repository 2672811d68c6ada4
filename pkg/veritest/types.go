package veritest

import "time"

// Message roles accepted in a completion request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-agnostic completion input. At most one
// system message is expected, conventionally first.
type CompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the provider-agnostic completion output.
type CompletionResult struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Usage        *Usage `json:"usage,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Validation modes for a test case.
const (
	ValidationModeText  = "text"
	ValidationModeRules = "rules"
)

// TestCase is one named input/expectation unit to execute against a target.
type TestCase struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Inputs         map[string]string `json:"inputs"`
	ExpectedOutput string            `json:"expected_output,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Enabled        *bool             `json:"enabled,omitempty"` // nil means enabled
	ValidationMode string            `json:"validation_mode,omitempty"`
	Rules          []ValidationRule  `json:"rules,omitempty"`
	JudgeRules     []string          `json:"judge_rules,omitempty"`
}

// IsEnabled reports whether the case should be executed. Absent flag
// defaults to true.
func (tc *TestCase) IsEnabled() bool {
	return tc.Enabled == nil || *tc.Enabled
}

// Validation rule types. The values are camelCase for wire compatibility
// with suite definitions authored against the public API.
const (
	RuleContains        = "contains"
	RuleExcludes        = "excludes"
	RuleMinLength       = "minLength"
	RuleMaxLength       = "maxLength"
	RuleRegex           = "regex"
	RuleJSONSchema      = "jsonSchema"
	RuleMaxResponseTime = "maxResponseTime"
	RuleIsJSON          = "isJson"
	RuleContainsJSON    = "containsJson"
)

// Rule severities. Severity never changes pass/fail in the engine; callers
// interpret warnings separately.
const (
	SeverityFail    = "fail"
	SeverityWarning = "warning"
)

// ValidationRule is one declarative check against a test output.
type ValidationRule struct {
	Type     string      `json:"type"`
	Value    interface{} `json:"value,omitempty"` // string or number depending on type
	Message  string      `json:"message,omitempty"`
	Severity string      `json:"severity,omitempty"`
}

// TestResult is the outcome of executing one test case once.
type TestResult struct {
	TestCaseID       string             `json:"test_case_id"`
	TestCaseName     string             `json:"test_case_name"`
	Inputs           map[string]string  `json:"inputs,omitempty"`
	Output           string             `json:"output,omitempty"`
	ValidationPassed bool               `json:"validation_passed"`
	ValidationErrors []string           `json:"validation_errors,omitempty"`
	JudgeScore       *float64           `json:"judge_score,omitempty"`
	JudgeScores      map[string]float64 `json:"judge_scores,omitempty"`
	ResponseTimeMS   int64              `json:"response_time_ms"`
	Error            string             `json:"error,omitempty"`
	Iteration        int                `json:"iteration,omitempty"` // 1-based, set when iterations > 1
}

// Passed reports whether the result counts as a pass: the call succeeded and
// every validation rule held.
func (r *TestResult) Passed() bool {
	return r.Error == "" && r.ValidationPassed
}

// TestRunSummary aggregates the results of one run.
type TestRunSummary struct {
	Total           int      `json:"total"`
	Passed          int      `json:"passed"`
	Failed          int      `json:"failed"`
	AvgScore        *float64 `json:"avg_score,omitempty"`
	AvgResponseTime float64  `json:"avg_response_time"`
}

// Run statuses.
const (
	RunStatusRunning    = "running"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
	RunStatusIncomplete = "incomplete"
)

// ModelOverride redirects a run to a different provider/model than the
// target's configured one.
type ModelOverride struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// TestRun is one complete execution of a suite's test cases.
type TestRun struct {
	ID            string         `json:"id"`
	RunAt         time.Time      `json:"run_at"`
	Status        string         `json:"status"`
	Results       []TestResult   `json:"results"`
	Summary       TestRunSummary `json:"summary"`
	Note          string         `json:"note,omitempty"`
	ModelOverride *ModelOverride `json:"model_override,omitempty"`
	Iterations    int            `json:"iterations,omitempty"` // present only if > 1
}

// Comparison statuses for a test case between two runs.
const (
	CompareImproved  = "improved"
	CompareRegressed = "regressed"
	CompareUnchanged = "unchanged"
	CompareNew       = "new"
	CompareRemoved   = "removed"
)

// TestCaseComparison is the per-case diff between two runs.
type TestCaseComparison struct {
	TestCaseID        string   `json:"test_case_id"`
	TestCaseName      string   `json:"test_case_name"`
	Status            string   `json:"status"`
	ScoreDelta        *float64 `json:"score_delta,omitempty"`
	ResponseTimeDelta *int64   `json:"response_time_delta,omitempty"`
}

// ComparisonSummary aggregates a run comparison.
type ComparisonSummary struct {
	Improved             int      `json:"improved"`
	Regressed            int      `json:"regressed"`
	Unchanged            int      `json:"unchanged"`
	New                  int      `json:"new"`
	Removed              int      `json:"removed"`
	PassRateDelta        float64  `json:"pass_rate_delta"` // percentage points, one decimal
	AvgScoreDelta        *float64 `json:"avg_score_delta,omitempty"`
	AvgResponseTimeDelta float64  `json:"avg_response_time_delta"`
}

// Comparison is the full diff document between a baseline and a compare run.
type Comparison struct {
	Summary   ComparisonSummary    `json:"summary"`
	TestCases []TestCaseComparison `json:"test_cases"`
}

// Target types.
const (
	TargetTypePrompt   = "prompt"
	TargetTypeEndpoint = "endpoint"
)

// PromptTarget is an LLM prompt under test.
type PromptTarget struct {
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Template     string   `json:"template"` // user prompt with {{variable}} placeholders
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
}

// EndpointTarget is a raw HTTP endpoint under test. URL and body template
// support {{variable}} substitution from test case inputs.
type EndpointTarget struct {
	URL                 string            `json:"url"`
	Method              string            `json:"method,omitempty"` // defaults to POST with a body, GET otherwise
	Headers             map[string]string `json:"headers,omitempty"`
	BearerToken         string            `json:"bearer_token,omitempty"`
	BodyTemplate        string            `json:"body_template,omitempty"`
	ResponseContentPath string            `json:"response_content_path,omitempty"` // dot path into the JSON response
}

// JudgeConfig enables LLM-judge scoring of outputs against criteria.
type JudgeConfig struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider,omitempty"` // defaults to the target provider
	Model    string   `json:"model,omitempty"`    // defaults to the target model
	Criteria []string `json:"criteria,omitempty"`
}

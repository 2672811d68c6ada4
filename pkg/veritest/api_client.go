package veritest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultAPIURL = "http://localhost:8080"

// Client is the HTTP client for the Veritest engine API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Veritest API client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// ExecuteRunInput mirrors the engine's invocation payload.
type ExecuteRunInput struct {
	TargetType  string            `json:"target_type"`
	Prompt      *PromptTarget     `json:"prompt,omitempty"`
	Endpoint    *EndpointTarget   `json:"endpoint,omitempty"`
	TestCases   []TestCase        `json:"test_cases"`
	Rules       []ValidationRule  `json:"rules,omitempty"`
	Judge       JudgeConfig       `json:"judge,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Options     RunOptions        `json:"options,omitempty"`
}

// RunOptions carries the optional execution knobs.
type RunOptions struct {
	ModelOverride  *ModelOverride `json:"model_override,omitempty"`
	Note           string         `json:"note,omitempty"`
	Iterations     int            `json:"iterations,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	TestCaseIDs    []string       `json:"test_case_ids,omitempty"`
	Parallel       bool           `json:"parallel,omitempty"`
	MaxConcurrency int            `json:"max_concurrency,omitempty"`
	OrganizationID string         `json:"organization_id,omitempty"`
}

// ExecuteRun executes a suite in batch mode and returns the completed run.
func (c *Client) ExecuteRun(ctx context.Context, input ExecuteRunInput) (*TestRun, error) {
	var run TestRun
	err := c.post(ctx, c.baseURL+"/v1/test-runs", input, &run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun retrieves a persisted test run by ID.
func (c *Client) GetRun(ctx context.Context, runID string) (*TestRun, error) {
	var run TestRun
	err := c.get(ctx, fmt.Sprintf("%s/v1/test-runs/%s", c.baseURL, runID), &run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CompareRuns diffs two persisted runs by ID.
func (c *Client) CompareRuns(ctx context.Context, baselineRunID, compareRunID string) (*Comparison, error) {
	payload := map[string]string{
		"baseline_run_id": baselineRunID,
		"compare_run_id":  compareRunID,
	}
	var result Comparison
	if err := c.post(ctx, c.baseURL+"/v1/comparisons", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Helper methods
func (c *Client) post(ctx context.Context, url string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{Code: "HTTP_ERROR", Message: fmt.Sprintf("request failed with status %d", resp.StatusCode)}
	}
	return &envelope.Error
}

// APIError represents an API error response
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

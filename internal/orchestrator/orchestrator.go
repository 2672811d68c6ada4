// Package orchestrator fans the single-case executor out over a suite's test
// cases and iterations, sequentially or under a bounded worker pool, and
// aggregates the run.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veritest-ai/veritest-be/internal/executor"
	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

const (
	// DefaultMaxConcurrency caps the parallel worker pool unless overridden
	// per organization.
	DefaultMaxConcurrency = 5

	maxIterations = 100
	maxNoteLength = 500
)

// Precondition error codes. These abort before any execution starts.
const (
	CodeInvalidTarget      = "INVALID_TARGET"
	CodeEmptySelection     = "EMPTY_SELECTION"
	CodeNoEnabledCases     = "NO_ENABLED_CASES"
	CodeMissingCredentials = "MISSING_CREDENTIALS"
)

// PreconditionError reports an input problem detected before execution.
type PreconditionError struct {
	Code    string
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// Input is the full invocation payload, already authorized and loaded by the
// caller.
type Input struct {
	TargetType     string
	Prompt         *veritest.PromptTarget
	Endpoint       *veritest.EndpointTarget
	TestCases      []veritest.TestCase
	Rules          []veritest.ValidationRule
	Judge          veritest.JudgeConfig
	Credentials    map[string]string
	ModelOverride  *veritest.ModelOverride
	Note           string
	Iterations     int
	Tags           []string
	TestCaseIDs    []string
	Parallel       bool
	MaxConcurrency int
}

// caseRunner is the single-case execution contract the orchestrator fans
// out. *executor.Executor satisfies it.
type caseRunner interface {
	Run(ctx context.Context, p executor.Params) veritest.TestResult
}

// Orchestrator coordinates a full run.
type Orchestrator struct {
	runner caseRunner
}

// New returns an orchestrator over the given executor.
func New(runner caseRunner) *Orchestrator {
	return &Orchestrator{runner: runner}
}

// unit is one (testCase, iteration) pair in the work queue. Iterations are
// flattened into the same queue, never run as nested parallel loops.
type unit struct {
	testCase  veritest.TestCase
	iteration int // 1-based
}

// Run executes the suite and returns the finished TestRun. notify may be
// nil for batch mode. Precondition errors return (nil, error); per-unit
// failures are recorded on results and never unwind the run.
func (o *Orchestrator) Run(ctx context.Context, in Input, notify Notify) (*veritest.TestRun, error) {
	if err := validateTarget(in); err != nil {
		return nil, err
	}

	cases, err := selectCases(in.TestCases, in.TestCaseIDs, in.Tags)
	if err != nil {
		return nil, err
	}

	if err := checkCredentials(in); err != nil {
		return nil, err
	}

	iterations := clampIterations(in.Iterations)
	units := make([]unit, 0, len(cases)*iterations)
	for iter := 1; iter <= iterations; iter++ {
		for _, tc := range cases {
			units = append(units, unit{testCase: tc, iteration: iter})
		}
	}

	run := &veritest.TestRun{
		ID:            uuid.NewString(),
		RunAt:         time.Now().UTC(),
		Status:        veritest.RunStatusRunning,
		Results:       make([]veritest.TestResult, 0, len(units)),
		Note:          truncateNote(in.Note),
		ModelOverride: in.ModelOverride,
	}
	if iterations > 1 {
		run.Iterations = iterations
	}

	notify.emit(EventConnected, ConnectedPayload{RunID: run.ID, Total: len(units)})

	if in.Parallel {
		o.runParallel(ctx, in, units, iterations, run, notify)
	} else {
		o.runSequential(ctx, in, units, iterations, run, notify)
	}

	if ctx.Err() != nil {
		if len(run.Results) > 0 {
			run.Status = veritest.RunStatusIncomplete
		} else {
			run.Status = veritest.RunStatusFailed
		}
	} else {
		run.Status = veritest.RunStatusCompleted
	}

	run.Summary = Summarize(run.Results)
	return run, nil
}

// runSequential executes one unit at a time in list order across all
// iterations, checking cancellation before each dispatch.
func (o *Orchestrator) runSequential(ctx context.Context, in Input, units []unit, iterations int, run *veritest.TestRun, notify Notify) {
	for _, u := range units {
		if ctx.Err() != nil {
			return
		}
		result := o.executeUnit(ctx, in, u, iterations)
		run.Results = append(run.Results, result)
		emitUnitEvents(notify, result, len(run.Results), len(units))
	}
}

// runParallel executes units under a fixed-size worker pool. The results
// slice is the only shared mutable state; a single mutex serializes appends
// and event emission so per-unit events stay in completion order.
func (o *Orchestrator) runParallel(ctx context.Context, in Input, units []unit, iterations int, run *veritest.TestRun, notify Notify) {
	maxConcurrency := in.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	workers := maxConcurrency
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan unit)
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for u := range jobs {
				result := o.executeUnit(ctx, in, u, iterations)
				mu.Lock()
				run.Results = append(run.Results, result)
				emitUnitEvents(notify, result, len(run.Results), len(units))
				mu.Unlock()
			}
		}()
	}

	// Dispatch cooperatively: stop handing out work once cancellation is
	// observed, but let in-flight units finish.
dispatch:
	for _, u := range units {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- u:
		}
	}
	close(jobs)
	wg.Wait()
}

func (o *Orchestrator) executeUnit(ctx context.Context, in Input, u unit, iterations int) veritest.TestResult {
	// Cancellation only stops dispatch. A unit already handed to the
	// executor runs on a detached context so its provider call finishes and
	// the result is kept instead of surfacing as a spurious failure.
	result := o.runner.Run(context.WithoutCancel(ctx), executor.Params{
		TestCase:      u.testCase,
		TargetType:    in.TargetType,
		Prompt:        in.Prompt,
		Endpoint:      in.Endpoint,
		Rules:         in.Rules,
		Judge:         in.Judge,
		Credentials:   in.Credentials,
		ModelOverride: in.ModelOverride,
	})
	if iterations > 1 {
		result.Iteration = u.iteration
	}
	return result
}

func emitUnitEvents(notify Notify, result veritest.TestResult, completed, total int) {
	if result.Error != "" {
		notify.emit(EventError, ErrorPayload{Message: result.Error, TestCaseID: result.TestCaseID})
	}
	notify.emit(EventProgress, ProgressPayload{
		Completed:  completed,
		Total:      total,
		TestCaseID: result.TestCaseID,
		Iteration:  result.Iteration,
	})
	notify.emit(EventResult, result)
}

// selectCases resolves the effective set: explicit IDs take precedence over
// tags (OR semantics), then the enabled flag is applied last. The two empty
// outcomes are distinct errors.
func selectCases(cases []veritest.TestCase, ids, tags []string) ([]veritest.TestCase, error) {
	var matched []veritest.TestCase

	switch {
	case len(ids) > 0:
		wanted := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		for _, tc := range cases {
			if _, ok := wanted[tc.ID]; ok {
				matched = append(matched, tc)
			}
		}
	case len(tags) > 0:
		wanted := make(map[string]struct{}, len(tags))
		for _, tag := range tags {
			wanted[tag] = struct{}{}
		}
		for _, tc := range cases {
			for _, tag := range tc.Tags {
				if _, ok := wanted[tag]; ok {
					matched = append(matched, tc)
					break
				}
			}
		}
	default:
		matched = cases
	}

	if len(matched) == 0 {
		return nil, &PreconditionError{
			Code:    CodeEmptySelection,
			Message: "No test cases match the requested filter",
		}
	}

	enabled := make([]veritest.TestCase, 0, len(matched))
	for _, tc := range matched {
		if tc.IsEnabled() {
			enabled = append(enabled, tc)
		}
	}
	if len(enabled) == 0 {
		return nil, &PreconditionError{
			Code:    CodeNoEnabledCases,
			Message: "No enabled test cases to run",
		}
	}

	return enabled, nil
}

func validateTarget(in Input) error {
	switch in.TargetType {
	case veritest.TargetTypePrompt:
		if in.Prompt == nil || in.Prompt.Provider == "" || in.Prompt.Model == "" {
			return &PreconditionError{Code: CodeInvalidTarget, Message: "Prompt target is missing or incomplete"}
		}
	case veritest.TargetTypeEndpoint:
		if in.Endpoint == nil || in.Endpoint.URL == "" {
			return &PreconditionError{Code: CodeInvalidTarget, Message: "Endpoint target is missing or incomplete"}
		}
	default:
		return &PreconditionError{Code: CodeInvalidTarget, Message: fmt.Sprintf("Unknown target type %q", in.TargetType)}
	}
	return nil
}

// checkCredentials verifies every provider the run will call has a key.
// Absence of a required key aborts before execution, never silently skips.
func checkCredentials(in Input) error {
	if in.TargetType != veritest.TargetTypePrompt {
		return nil
	}

	required := make([]string, 0, 2)
	providerName, _ := executor.ResolveTarget(in.Prompt, in.ModelOverride)
	required = append(required, providerName)
	if in.Judge.Enabled && in.Judge.Provider != "" && in.Judge.Provider != providerName {
		required = append(required, in.Judge.Provider)
	}

	for _, name := range required {
		if in.Credentials[name] == "" {
			return &PreconditionError{
				Code:    CodeMissingCredentials,
				Message: fmt.Sprintf("Missing API key for provider %q", name),
			}
		}
	}
	return nil
}

func clampIterations(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxIterations {
		return maxIterations
	}
	return n
}

func truncateNote(note string) string {
	note = strings.TrimSpace(note)
	runes := []rune(note)
	if len(runes) > maxNoteLength {
		return string(runes[:maxNoteLength])
	}
	return note
}

// Summarize aggregates results into the run summary. avgScore is the mean
// of only the results that produced a judge score, rounded to two decimals,
// and is present only when at least one score exists.
func Summarize(results []veritest.TestResult) veritest.TestRunSummary {
	summary := veritest.TestRunSummary{Total: len(results)}
	if len(results) == 0 {
		return summary
	}

	var totalTime int64
	var scoreSum float64
	scored := 0
	for _, r := range results {
		if r.Passed() {
			summary.Passed++
		} else {
			summary.Failed++
		}
		totalTime += r.ResponseTimeMS
		if r.JudgeScore != nil {
			scoreSum += *r.JudgeScore
			scored++
		}
	}

	summary.AvgResponseTime = float64(totalTime) / float64(len(results))
	if scored > 0 {
		avg := math.Round(scoreSum/float64(scored)*100) / 100
		summary.AvgScore = &avg
	}
	return summary
}

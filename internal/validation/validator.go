// Package validation evaluates declarative rules against a test output. It
// is pure: no I/O, no external calls, deterministic for a given input.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// Result is the outcome of evaluating a rule list against one output.
type Result struct {
	Passed bool     `json:"passed"`
	Errors []string `json:"errors"`
}

// Validate evaluates every rule against the output and returns the union of
// failures. It never short-circuits; an empty rule list always passes.
// responseTimeMS may be nil when latency is unknown, in which case
// maxResponseTime rules are skipped.
func Validate(output string, rules []veritest.ValidationRule, responseTimeMS *int64) Result {
	errors := make([]string, 0)

	for _, rule := range rules {
		if msg := evaluateRule(output, rule, responseTimeMS); msg != "" {
			if rule.Message != "" {
				msg = rule.Message
			}
			errors = append(errors, msg)
		}
	}

	return Result{Passed: len(errors) == 0, Errors: errors}
}

// evaluateRule returns the default failure message, or "" on pass. Malformed
// rule definitions (bad regex, bad schema) are reported as failures, never
// raised, so one bad rule cannot abort a run.
func evaluateRule(output string, rule veritest.ValidationRule, responseTimeMS *int64) string {
	switch rule.Type {
	case veritest.RuleContains:
		value := stringValue(rule.Value)
		if !strings.Contains(output, value) {
			return fmt.Sprintf("Output does not contain %q", value)
		}

	case veritest.RuleExcludes:
		value := stringValue(rule.Value)
		if strings.Contains(output, value) {
			return fmt.Sprintf("Output contains excluded text %q", value)
		}

	case veritest.RuleMinLength:
		limit, ok := intValue(rule.Value)
		if !ok {
			return fmt.Sprintf("Invalid minLength value %v", rule.Value)
		}
		if length := utf8.RuneCountInString(output); length < limit {
			return fmt.Sprintf("Output length %d is less than minimum %d", length, limit)
		}

	case veritest.RuleMaxLength:
		limit, ok := intValue(rule.Value)
		if !ok {
			return fmt.Sprintf("Invalid maxLength value %v", rule.Value)
		}
		if length := utf8.RuneCountInString(output); length > limit {
			return fmt.Sprintf("Output length %d exceeds maximum %d", length, limit)
		}

	case veritest.RuleRegex:
		pattern := stringValue(rule.Value)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Sprintf("Regex validation error: %v", err)
		}
		if !re.MatchString(output) {
			return fmt.Sprintf("Output does not match pattern %q", pattern)
		}

	case veritest.RuleJSONSchema:
		return evaluateJSONSchema(output, schemaValue(rule.Value))

	case veritest.RuleIsJSON:
		if !isJSON(stripCodeFence(output)) {
			return "Output is not valid JSON"
		}

	case veritest.RuleContainsJSON:
		if _, ok := extractJSON(output); !ok {
			return "Output does not contain valid JSON"
		}

	case veritest.RuleMaxResponseTime:
		if responseTimeMS == nil {
			return "" // latency unknown, rule skipped
		}
		limit, ok := intValue(rule.Value)
		if !ok {
			return fmt.Sprintf("Invalid maxResponseTime value %v", rule.Value)
		}
		if *responseTimeMS > int64(limit) {
			return fmt.Sprintf("Response time %dms exceeds limit %dms", *responseTimeMS, limit)
		}

	default:
		return fmt.Sprintf("Unknown validation rule type %q", rule.Type)
	}

	return ""
}

func stringValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}

// schemaValue accepts the schema either as a JSON string or as an already
// decoded object.
func schemaValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func intValue(v interface{}) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case int64:
		return int(value), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

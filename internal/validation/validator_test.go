package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

func rule(ruleType string, value interface{}) veritest.ValidationRule {
	return veritest.ValidationRule{Type: ruleType, Value: value}
}

func TestValidate_EmptyRuleListAlwaysPasses(t *testing.T) {
	result := Validate("anything at all", nil, nil)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)

	result = Validate("", []veritest.ValidationRule{}, nil)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
}

func TestValidate_Contains(t *testing.T) {
	result := Validate("hello world", []veritest.ValidationRule{rule(veritest.RuleContains, "world")}, nil)
	assert.True(t, result.Passed)

	result = Validate("hello world", []veritest.ValidationRule{rule(veritest.RuleContains, "World")}, nil)
	assert.False(t, result.Passed, "substring test is case-sensitive")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "World")
}

func TestValidate_Excludes(t *testing.T) {
	result := Validate("all good here", []veritest.ValidationRule{rule(veritest.RuleExcludes, "error")}, nil)
	assert.True(t, result.Passed)

	result = Validate("an error occurred", []veritest.ValidationRule{rule(veritest.RuleExcludes, "error")}, nil)
	assert.False(t, result.Passed)
}

func TestValidate_LengthBoundaries(t *testing.T) {
	output := "12345"

	// Boundary values are inclusive on both rules.
	result := Validate(output, []veritest.ValidationRule{
		rule(veritest.RuleMinLength, float64(5)),
		rule(veritest.RuleMaxLength, float64(5)),
	}, nil)
	assert.True(t, result.Passed)

	result = Validate(output, []veritest.ValidationRule{rule(veritest.RuleMinLength, float64(6))}, nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors[0], "less than minimum 6")

	result = Validate(output, []veritest.ValidationRule{rule(veritest.RuleMaxLength, float64(4))}, nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors[0], "exceeds maximum 4")
}

func TestValidate_LengthCountsRunesNotBytes(t *testing.T) {
	output := "日本語のテスト" // 7 runes, 21 bytes

	result := Validate(output, []veritest.ValidationRule{
		rule(veritest.RuleMinLength, float64(7)),
		rule(veritest.RuleMaxLength, float64(7)),
	}, nil)
	assert.True(t, result.Passed)

	result = Validate(output, []veritest.ValidationRule{rule(veritest.RuleMaxLength, float64(6))}, nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors[0], "Output length 7")
}

func TestValidate_Regex(t *testing.T) {
	result := Validate("order #1234", []veritest.ValidationRule{rule(veritest.RuleRegex, `#\d+`)}, nil)
	assert.True(t, result.Passed)

	result = Validate("no digits", []veritest.ValidationRule{rule(veritest.RuleRegex, `#\d+`)}, nil)
	assert.False(t, result.Passed)
}

func TestValidate_BadRegexIsAFailureNotAFault(t *testing.T) {
	result := Validate("anything", []veritest.ValidationRule{rule(veritest.RuleRegex, `([`)}, nil)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "error")
}

func TestValidate_NoShortCircuit(t *testing.T) {
	result := Validate("short", []veritest.ValidationRule{
		rule(veritest.RuleContains, "missing"),
		rule(veritest.RuleMinLength, float64(100)),
		rule(veritest.RuleRegex, `\d+`),
	}, nil)
	assert.False(t, result.Passed)
	assert.Len(t, result.Errors, 3, "every failing rule is reported")
}

func TestValidate_CustomMessageOverridesDefault(t *testing.T) {
	custom := veritest.ValidationRule{
		Type:    veritest.RuleContains,
		Value:   "refund",
		Message: "the answer must mention refunds",
	}
	result := Validate("no such word", []veritest.ValidationRule{custom}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "the answer must mention refunds", result.Errors[0])
}

func TestValidate_MaxResponseTime(t *testing.T) {
	// Unknown latency: the rule is skipped regardless of limit.
	result := Validate("ok", []veritest.ValidationRule{rule(veritest.RuleMaxResponseTime, float64(1))}, nil)
	assert.True(t, result.Passed)

	within := int64(100)
	result = Validate("ok", []veritest.ValidationRule{rule(veritest.RuleMaxResponseTime, float64(200))}, &within)
	assert.True(t, result.Passed)

	over := int64(350)
	result = Validate("ok", []veritest.ValidationRule{rule(veritest.RuleMaxResponseTime, float64(200))}, &over)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	// The failure names both the actual and the limit values.
	assert.Contains(t, result.Errors[0], "350")
	assert.Contains(t, result.Errors[0], "200")
}

func TestValidate_IsJSON(t *testing.T) {
	cases := []struct {
		name   string
		output string
		passed bool
	}{
		{"object", `{"a": 1}`, true},
		{"array", `[1, 2, 3]`, true},
		{"string", `"hello"`, true},
		{"number", `42`, true},
		{"boolean", `true`, true},
		{"null", `null`, true},
		{"prose", `this is not json`, false},
		{"truncated", `{"a":`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.output, []veritest.ValidationRule{rule(veritest.RuleIsJSON, nil)}, nil)
			assert.Equal(t, tc.passed, result.Passed)
		})
	}
}

func TestValidate_IsJSONFencedEquivalence(t *testing.T) {
	raw := `{"status": "ok"}`
	fencedPlain := "```\n" + raw + "\n```"
	fencedTagged := "```json\n" + raw + "\n```"

	rules := []veritest.ValidationRule{rule(veritest.RuleIsJSON, nil)}
	assert.Equal(t, Validate(raw, rules, nil).Passed, Validate(fencedPlain, rules, nil).Passed)
	assert.Equal(t, Validate(raw, rules, nil).Passed, Validate(fencedTagged, rules, nil).Passed)
}

func TestValidate_ContainsJSON(t *testing.T) {
	result := Validate(`Here is the data: {"a": 1} as requested.`,
		[]veritest.ValidationRule{rule(veritest.RuleContainsJSON, nil)}, nil)
	assert.True(t, result.Passed)

	result = Validate("Here is the answer:\n```json\n[1,2]\n```\nDone.",
		[]veritest.ValidationRule{rule(veritest.RuleContainsJSON, nil)}, nil)
	assert.True(t, result.Passed)

	result = Validate("no structured data here",
		[]veritest.ValidationRule{rule(veritest.RuleContainsJSON, nil)}, nil)
	assert.False(t, result.Passed)
}

func TestValidate_JSONSchema(t *testing.T) {
	schema := `{"type":"object","required":["name","age"],"properties":{"name":{"type":"string"},"age":{"type":"number"},"tags":{"type":"array","items":{"type":"string"}}}}`

	result := Validate(`{"name":"Ada","age":36,"tags":["math"]}`,
		[]veritest.ValidationRule{rule(veritest.RuleJSONSchema, schema)}, nil)
	assert.True(t, result.Passed)

	result = Validate(`{"name":"Ada"}`,
		[]veritest.ValidationRule{rule(veritest.RuleJSONSchema, schema)}, nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors[0], "age")

	result = Validate(`{"name":42,"age":36}`,
		[]veritest.ValidationRule{rule(veritest.RuleJSONSchema, schema)}, nil)
	assert.False(t, result.Passed)
}

func TestValidate_JSONSchemaDistinctFailureMessages(t *testing.T) {
	schema := `{"type":"object"}`

	result := Validate("not json at all", []veritest.ValidationRule{rule(veritest.RuleJSONSchema, schema)}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Output is not valid JSON", result.Errors[0])

	result = Validate(`{}`, []veritest.ValidationRule{rule(veritest.RuleJSONSchema, "{{broken")}, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Invalid JSON schema", result.Errors[0])
}

func TestValidate_WarningSeverityDoesNotChangeOutcome(t *testing.T) {
	warning := veritest.ValidationRule{
		Type:     veritest.RuleContains,
		Value:    "absent",
		Severity: veritest.SeverityWarning,
	}
	result := Validate("output text", []veritest.ValidationRule{warning}, nil)
	assert.False(t, result.Passed, "severity is informational; the failure still counts")
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
	assert.Equal(t, "plain text", stripCodeFence("plain text"))
}

func TestExtractJSON(t *testing.T) {
	// Fully fenced output: the fence interior is the candidate.
	candidate, ok := extractJSON("```json\n{\"inside\": true}\n```")
	require.True(t, ok)
	assert.Contains(t, candidate, "inside")

	// Unfenced prose: the first parseable object wins.
	candidate, ok = extractJSON(`before {"bad": } then {"good": 1} after`)
	require.True(t, ok)
	assert.Contains(t, candidate, "good")

	_, ok = extractJSON("nothing structured")
	assert.False(t, ok)
}

package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

const judgeSystemPrompt = "You are an impartial evaluator. Score the candidate output against each " +
	"criterion on a 0.0 to 1.0 scale. Respond with JSON only, in the form " +
	`{"score": <overall 0..1>, "scores": {"<criterion>": <0..1>, ...}}.`

// judgeVerdict is the JSON document the judge model is asked to produce.
type judgeVerdict struct {
	Score  float64            `json:"score"`
	Scores map[string]float64 `json:"scores"`
}

// judge issues a second provider call whose prompt embeds the criteria and
// the output, then parses the numeric verdict into the result. A judge
// failure leaves the scores unset; it never flips the validation outcome.
func (e *Executor) judge(ctx context.Context, p Params, output string, result *veritest.TestResult) {
	providerName, model := judgeTarget(p)
	adapter, ok := e.providers[providerName]
	if !ok {
		return
	}

	req := veritest.CompletionRequest{
		Model: model,
		Messages: []veritest.Message{
			{Role: veritest.RoleSystem, Content: judgeSystemPrompt},
			{Role: veritest.RoleUser, Content: buildJudgePrompt(p, output)},
		},
	}

	completion, err := adapter.Complete(ctx, req, p.Credentials[providerName])
	if err != nil {
		return
	}

	verdict, err := parseJudgeVerdict(completion.Content)
	if err != nil {
		return
	}

	score := clampScore(verdict.Score)
	result.JudgeScore = &score
	if len(verdict.Scores) > 0 {
		scores := make(map[string]float64, len(verdict.Scores))
		for criterion, value := range verdict.Scores {
			scores[criterion] = clampScore(value)
		}
		result.JudgeScores = scores
	}
}

// judgeTarget resolves the judge provider/model, defaulting to the effective
// target provider/model.
func judgeTarget(p Params) (string, string) {
	providerName, model := ResolveTarget(p.Prompt, p.ModelOverride)
	if p.Judge.Provider != "" {
		providerName = p.Judge.Provider
	}
	if p.Judge.Model != "" {
		model = p.Judge.Model
	}
	return providerName, model
}

func buildJudgePrompt(p Params, output string) string {
	var b strings.Builder

	criteria := p.Judge.Criteria
	if len(p.TestCase.JudgeRules) > 0 {
		criteria = append(append([]string{}, criteria...), p.TestCase.JudgeRules...)
	}

	b.WriteString("Criteria:\n")
	for _, criterion := range criteria {
		fmt.Fprintf(&b, "- %s\n", criterion)
	}
	if p.TestCase.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\nReference output:\n%s\n", p.TestCase.ExpectedOutput)
	}
	fmt.Fprintf(&b, "\nCandidate output:\n%s\n", output)
	return b.String()
}

// parseJudgeVerdict tolerates judges that wrap their JSON in prose or a
// fenced code block.
func parseJudgeVerdict(content string) (*judgeVerdict, error) {
	candidate := content
	if start := strings.IndexAny(candidate, "{"); start >= 0 {
		candidate = candidate[start:]
		if end := strings.LastIndex(candidate, "}"); end >= 0 {
			candidate = candidate[:end+1]
		}
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(candidate), &verdict); err != nil {
		return nil, fmt.Errorf("judge returned unparseable verdict: %w", err)
	}
	return &verdict, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

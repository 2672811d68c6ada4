// Package comparison diffs two completed test runs into per-case statuses
// and aggregate deltas. It is pure: no network or storage access.
package comparison

import (
	"math"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

// scoreDeltaThreshold separates a real score movement from noise. The
// comparison is strict: a delta of exactly the threshold is unchanged.
const scoreDeltaThreshold = 0.05

// Compare classifies every test case present in either run and aggregates
// the result. Both runs are read-only inputs; how they were produced does
// not matter.
func Compare(baseline, compare *veritest.TestRun) *veritest.Comparison {
	baseResults := indexResults(baseline)
	compResults := indexResults(compare)

	ids := unionIDs(baseline, compare)

	result := &veritest.Comparison{
		TestCases: make([]veritest.TestCaseComparison, 0, len(ids)),
	}

	for _, id := range ids {
		base, inBase := baseResults[id]
		comp, inComp := compResults[id]

		entry := veritest.TestCaseComparison{TestCaseID: id}

		switch {
		case !inBase:
			entry.Status = veritest.CompareNew
			entry.TestCaseName = comp.TestCaseName
		case !inComp:
			entry.Status = veritest.CompareRemoved
			entry.TestCaseName = base.TestCaseName
		default:
			entry.TestCaseName = comp.TestCaseName
			entry.Status = classify(base, comp)
			delta := comp.ResponseTimeMS - base.ResponseTimeMS
			entry.ResponseTimeDelta = &delta
			if base.JudgeScore != nil && comp.JudgeScore != nil {
				scoreDelta := *comp.JudgeScore - *base.JudgeScore
				entry.ScoreDelta = &scoreDelta
			}
		}

		switch entry.Status {
		case veritest.CompareImproved:
			result.Summary.Improved++
		case veritest.CompareRegressed:
			result.Summary.Regressed++
		case veritest.CompareUnchanged:
			result.Summary.Unchanged++
		case veritest.CompareNew:
			result.Summary.New++
		case veritest.CompareRemoved:
			result.Summary.Removed++
		}

		result.TestCases = append(result.TestCases, entry)
	}

	result.Summary.PassRateDelta = roundTenth((passRate(compare) - passRate(baseline)) * 100)
	result.Summary.AvgResponseTimeDelta = avgResponseTime(compare) - avgResponseTime(baseline)
	if baseline.Summary.AvgScore != nil && compare.Summary.AvgScore != nil {
		delta := roundTenth((*compare.Summary.AvgScore - *baseline.Summary.AvgScore) * 100)
		result.Summary.AvgScoreDelta = &delta
	}

	return result
}

// classify evaluates the pass-state transition first; only when pass-state
// is unchanged does the judge-score delta decide.
func classify(base, comp *veritest.TestResult) string {
	basePassed := base.Passed()
	compPassed := comp.Passed()

	if !basePassed && compPassed {
		return veritest.CompareImproved
	}
	if basePassed && !compPassed {
		return veritest.CompareRegressed
	}

	if base.JudgeScore != nil && comp.JudgeScore != nil {
		delta := *comp.JudgeScore - *base.JudgeScore
		if delta > scoreDeltaThreshold {
			return veritest.CompareImproved
		}
		if delta < -scoreDeltaThreshold {
			return veritest.CompareRegressed
		}
	}
	return veritest.CompareUnchanged
}

// indexResults maps results by test case ID, last-write-wins on duplicates.
func indexResults(run *veritest.TestRun) map[string]*veritest.TestResult {
	indexed := make(map[string]*veritest.TestResult, len(run.Results))
	for i := range run.Results {
		indexed[run.Results[i].TestCaseID] = &run.Results[i]
	}
	return indexed
}

// unionIDs preserves a stable order: baseline order first, then compare-only
// IDs in their run order.
func unionIDs(baseline, compare *veritest.TestRun) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, runs := range [][]veritest.TestResult{baseline.Results, compare.Results} {
		for _, r := range runs {
			if _, ok := seen[r.TestCaseID]; ok {
				continue
			}
			seen[r.TestCaseID] = struct{}{}
			ids = append(ids, r.TestCaseID)
		}
	}
	return ids
}

func passRate(run *veritest.TestRun) float64 {
	if len(run.Results) == 0 {
		return 0
	}
	passed := 0
	for i := range run.Results {
		if run.Results[i].Passed() {
			passed++
		}
	}
	return float64(passed) / float64(len(run.Results))
}

func avgResponseTime(run *veritest.TestRun) float64 {
	if len(run.Results) == 0 {
		return 0
	}
	var total int64
	for i := range run.Results {
		total += run.Results[i].ResponseTimeMS
	}
	return float64(total) / float64(len(run.Results))
}

// roundTenth rounds to one decimal, the percentage-point precision the
// summary reports.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

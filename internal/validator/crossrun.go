// Package validator cross-references independently produced run artifacts
// against the current guide to decide whether the documentation itself is
// accurate. It performs no execution: validation is a pure reduction over
// frozen run data and is safe to invoke concurrently.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/scenario"
)

// RateStat is one per-command success-rate grouping.
type RateStat struct {
	Dimension string  `json:"dimension"` // platform, scenario or runtime-version
	Key       string  `json:"key"`       // grouping value
	Section   string  `json:"section"`
	Step      string  `json:"step"`
	Command   string  `json:"command"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	Rate      float64 `json:"rate"`
}

// Result is the validator output consumed by the report generator.
type Result struct {
	Issues []models.ValidationIssue `json:"issues"`
	Rates  []RateStat               `json:"rates"`
}

// Validate cross-references the runs against the guide's steps using the
// same scenario table the executor used for skip decisions.
func Validate(guide *models.Guide, runs []*models.Run, scenarios []scenario.Scenario) *Result {
	res := &Result{}
	for _, step := range guide.Steps {
		res.Issues = append(res.Issues, validateStep(step, runs, scenarios)...)
	}
	res.Rates = commandRates(guide, runs)
	for _, rs := range res.Rates {
		if issue, ok := rateIssue(rs); ok {
			res.Issues = append(res.Issues, issue)
		}
	}
	return res
}

// validateStep implements the per-step decision procedure: gather matching
// results, then classify absence or failures.
func validateStep(step models.Step, runs []*models.Run, scenarios []scenario.Scenario) []models.ValidationIssue {
	var executed, failed []*models.Run
	for _, run := range runs {
		sr := run.StepFor(step.Section, step.Title)
		if sr == nil || sr.Status == models.StatusSkipped {
			continue
		}
		executed = append(executed, run)
		if sr.Status == models.StatusFailed {
			failed = append(failed, run)
		}
	}

	if len(executed) == 0 {
		return []models.ValidationIssue{classifyAbsence(step, runs, scenarios)}
	}
	if len(failed) == 0 {
		return nil
	}
	return classifyFailures(step, executed, failed)
}

// classifyAbsence decides why a documented step never executed in any run.
func classifyAbsence(step models.Step, runs []*models.Run, scenarios []scenario.Scenario) models.ValidationIssue {
	expected := false
	for _, run := range runs {
		sc, err := scenario.Lookup(scenarios, run.Scenario)
		if err != nil {
			continue
		}
		if sc.Includes(step.Section) {
			expected = true
			break
		}
	}

	issue := models.ValidationIssue{
		Section:   step.Section,
		Step:      step.Title,
		Scenarios: representedScenarios(runs),
		Platforms: representedPlatforms(runs),
	}

	if !expected {
		issue.Classification = models.IssueExpectedSkip
		issue.Severity = models.SeverityInfo
		issue.Detail = "step is excluded by every represented scenario"
		return issue
	}

	if narrowSample(runs, scenarios) {
		issue.Classification = models.IssueCoverageLimitation
		issue.Severity = models.SeverityInfo
		issue.Detail = "step was expected to run but the available run sample looks deliberately partial"
		return issue
	}

	issue.Classification = models.IssueMissingExecution
	issue.Severity = models.SeverityHigh
	issue.Detail = "step was expected to run in at least one represented scenario but no run executed it"
	return issue
}

// classifyFailures classifies each failing run against the
// environment-limitation signature table.
func classifyFailures(step models.Step, executed, failed []*models.Run) []models.ValidationIssue {
	opKeys := stepOperationKeywords(step)

	var issues []models.ValidationIssue
	expectedCount := 0
	inconclusiveCount := 0
	var unexpectedRuns []*models.Run

	for _, run := range failed {
		sr := run.StepFor(step.Section, step.Title)
		errText := aggregateError(sr)

		if errText == "" {
			inconclusiveCount++
			continue
		}
		if sig := matchSignature(errText, opKeys); sig != "" {
			expectedCount++
			issues = append(issues, models.ValidationIssue{
				Classification: models.IssueExpectedFailure,
				Severity:       models.SeverityInfo,
				Section:        step.Section,
				Step:           step.Title,
				Detail:         fmt.Sprintf("failure matches environment limitation %q", sig),
				Scenarios:      []string{run.Scenario},
				Platforms:      []string{run.Platform},
			})
			continue
		}
		unexpectedRuns = append(unexpectedRuns, run)
	}

	if inconclusiveCount > 0 {
		issues = append(issues, models.ValidationIssue{
			Classification: models.IssueInconclusive,
			Severity:       models.SeverityMedium,
			Section:        step.Section,
			Step:           step.Title,
			Detail:         fmt.Sprintf("%d failing run(s) carried no error detail; failure could not be confidently classified", inconclusiveCount),
			Scenarios:      representedScenarios(failed),
			Platforms:      representedPlatforms(failed),
		})
	}

	if len(unexpectedRuns) > 0 {
		severity := models.SeverityMedium
		if len(failed) == len(executed) {
			// Universal failure: the documented step never works.
			severity = models.SeverityCritical
		}
		issues = append(issues, models.ValidationIssue{
			Classification: models.IssueUnexpectedFailure,
			Severity:       severity,
			Section:        step.Section,
			Step:           step.Title,
			Detail: fmt.Sprintf("step failed in %d of %d run(s) without matching any environment limitation",
				len(failed), len(executed)),
			Scenarios: representedScenarios(unexpectedRuns),
			Platforms: representedPlatforms(unexpectedRuns),
		})
	}

	return issues
}

// matchSignature returns the name of the first matching environment
// signature, or empty when none applies.
func matchSignature(errText string, opKeys map[string]bool) string {
	for _, sig := range envSignatures {
		if !sig.ErrPattern.MatchString(errText) {
			continue
		}
		if len(sig.OpKeywords) == 0 {
			return sig.Name
		}
		for _, kw := range sig.OpKeywords {
			if opKeys[kw] {
				return sig.Name
			}
		}
	}
	return ""
}

// aggregateError concatenates the step error with its failing command errors.
func aggregateError(sr *models.StepResult) string {
	var parts []string
	if sr.Error != "" {
		parts = append(parts, sr.Error)
	}
	for _, cr := range sr.Commands {
		if cr.Status == models.StatusFailed {
			if cr.Error != "" {
				parts = append(parts, cr.Error)
			}
			if cr.Output != "" {
				parts = append(parts, cr.Output)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// stepOperationKeywords infers operation categories from the step's section
// and title text.
func stepOperationKeywords(step models.Step) map[string]bool {
	text := strings.ToLower(step.Section + " " + step.Title)
	out := make(map[string]bool)
	for category, words := range operationVocabulary {
		for _, w := range words {
			if strings.Contains(text, w) {
				// Signature keywords reference the literal vocabulary words,
				// so record both the category and the matched word.
				out[category] = true
				out[w] = true
			}
		}
	}
	return out
}

// narrowSample implements the best-effort coverage-limitation heuristic:
// very few runs, a sample covering one or two operation categories, or runs
// whose executed steps contradict their own scenario (removal steps inside
// an install-only scenario).
func narrowSample(runs []*models.Run, scenarios []scenario.Scenario) bool {
	if len(runs) < minRunsForCoverage {
		return true
	}

	categories := make(map[string]bool)
	for _, run := range runs {
		for _, sr := range run.Steps {
			if sr.Synthetic {
				continue
			}
			text := strings.ToLower(sr.Section + " " + sr.Title)
			for category, words := range operationVocabulary {
				for _, w := range words {
					if strings.Contains(text, w) {
						categories[category] = true
					}
				}
			}
		}
	}
	if len(categories) < minCategoriesCovered {
		return true
	}

	for _, run := range runs {
		sc, err := scenario.Lookup(scenarios, run.Scenario)
		if err != nil {
			continue
		}
		for _, sr := range run.Steps {
			if sr.Synthetic || sr.Status == models.StatusSkipped {
				continue
			}
			if scenario.RemovalSection(sr.Section) && !sc.Includes(sr.Section) {
				// Executed step the scenario should have excluded: the
				// artifact set was produced by something other than a full
				// matrix run.
				return true
			}
		}
	}
	return false
}

// commandRates computes per-command success rates grouped by platform,
// scenario and runtime-version. Skipped commands do not contribute.
func commandRates(guide *models.Guide, runs []*models.Run) []RateStat {
	type key struct {
		dimension, value, section, step, command string
	}
	counts := make(map[key][2]int)
	var order []key

	record := func(k key, passed bool) {
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		c := counts[k]
		if passed {
			c[0]++
		} else {
			c[1]++
		}
		counts[k] = c
	}

	for _, step := range guide.Steps {
		// A step can document the same command text twice; counting results
		// once per guide occurrence would double them.
		seen := make(map[string]bool)
		for _, cmd := range step.Commands {
			if seen[cmd.Raw] {
				continue
			}
			seen[cmd.Raw] = true
			for _, run := range runs {
				sr := run.StepFor(step.Section, step.Title)
				if sr == nil {
					continue
				}
				for _, cr := range sr.Commands {
					if cr.Command != cmd.Raw || cr.Status == models.StatusSkipped {
						continue
					}
					passed := cr.Status == models.StatusPassed
					record(key{"platform", run.Platform, step.Section, step.Title, cmd.Raw}, passed)
					record(key{"scenario", run.Scenario, step.Section, step.Title, cmd.Raw}, passed)
					record(key{"runtime-version", run.RuntimeVersion, step.Section, step.Title, cmd.Raw}, passed)
				}
			}
		}
	}

	stats := make([]RateStat, 0, len(order))
	for _, k := range order {
		c := counts[k]
		total := c[0] + c[1]
		if total == 0 {
			continue
		}
		stats = append(stats, RateStat{
			Dimension: k.dimension,
			Key:       k.value,
			Section:   k.section,
			Step:      k.step,
			Command:   k.command,
			Passed:    c[0],
			Failed:    c[1],
			Rate:      float64(c[0]) / float64(total),
		})
	}

	// Deterministic order for downstream consumers.
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Dimension != stats[j].Dimension {
			return stats[i].Dimension < stats[j].Dimension
		}
		return stats[i].Key < stats[j].Key
	})
	return stats
}

// rateIssue flags a grouping below its dimension threshold, with severity
// scaled to how far below threshold the rate sits.
func rateIssue(rs RateStat) (models.ValidationIssue, bool) {
	var threshold float64
	switch rs.Dimension {
	case "platform":
		threshold = platformRateThreshold
	case "scenario":
		threshold = scenarioRateThreshold
	case "runtime-version":
		threshold = runtimeRateThreshold
	default:
		return models.ValidationIssue{}, false
	}
	if rs.Rate >= threshold {
		return models.ValidationIssue{}, false
	}

	severity := models.SeverityMedium
	if rs.Rate <= threshold-0.5 {
		severity = models.SeverityHigh
	}
	return models.ValidationIssue{
		Classification: models.IssueLowSuccessRate,
		Severity:       severity,
		Section:        rs.Section,
		Step:           rs.Step,
		Command:        rs.Command,
		Detail: fmt.Sprintf("success rate %.0f%% for %s=%s is below the %.0f%% threshold",
			rs.Rate*100, rs.Dimension, rs.Key, threshold*100),
		Rate: rs.Rate,
	}, true
}

func representedScenarios(runs []*models.Run) []string {
	return uniqueField(runs, func(r *models.Run) string { return r.Scenario })
}

func representedPlatforms(runs []*models.Run) []string {
	return uniqueField(runs, func(r *models.Run) string { return r.Platform })
}

func uniqueField(runs []*models.Run, f func(*models.Run) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range runs {
		v := f(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Package report aggregates cross-run validation output into a prioritized
// summary. One in-memory model feeds both the machine-readable and the
// human-readable renderings; nothing is computed twice.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrison/docproof/internal/models"
	"github.com/harrison/docproof/internal/validator"
)

// DefaultTopSignatures bounds the recurring-failure table.
const DefaultTopSignatures = 5

// Report is the aggregated model.
type Report struct {
	GuideSource     string                   `json:"guideSource"`
	TotalRuns       int                      `json:"totalRuns"`
	TotalSteps      int                      `json:"totalSteps"`
	Summary         Summary                  `json:"summary"`
	Breakdowns      []Breakdown              `json:"breakdowns"`
	TopFailures     []FailureSignature       `json:"topFailures"`
	Anomalies       []PlatformAnomaly        `json:"platformAnomalies"`
	Recommendations []Recommendation         `json:"recommendations"`
	Issues          []models.ValidationIssue `json:"issues"`
	Rates           []validator.RateStat     `json:"rates"`
	History         *History                 `json:"history,omitempty"`
}

// History summarizes the run history database alongside the loaded
// artifacts: the historical record can be much deeper than the artifacts
// currently on disk.
type History struct {
	Runs   int         `json:"runs"`
	Trends []StepTrend `json:"trends"`
}

// StepTrend is one step's recorded track record across all historical runs.
type StepTrend struct {
	Section    string    `json:"section"`
	Step       string    `json:"step"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	LastStatus string    `json:"lastStatus"`
	LastSeen   time.Time `json:"lastSeen"`
}

// Summary counts issues by severity and defect status.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Info     int `json:"info"`
	Defects  int `json:"defects"`
}

// Breakdown is a per-dimension table row: run outcomes grouped by platform,
// scenario or runtime version.
type Breakdown struct {
	Dimension string `json:"dimension"`
	Key       string `json:"key"`
	Runs      int    `json:"runs"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// FailureSignature is one recurring failure pattern with its blast radius.
type FailureSignature struct {
	Detail    string   `json:"detail"`
	Count     int      `json:"count"`
	Steps     []string `json:"steps"`
	Scenarios []string `json:"scenarios"`
}

// PlatformAnomaly flags a step that misbehaves on some platforms but not
// others.
type PlatformAnomaly struct {
	Section    string   `json:"section"`
	Step       string   `json:"step"`
	Affected   []string `json:"affectedPlatforms"`
	Unaffected []string `json:"unaffectedPlatforms"`
}

// Recommendation is one prioritized, human-readable action item.
type Recommendation struct {
	Priority int    `json:"priority"` // 1 is most urgent
	Severity string `json:"severity"`
	Action   string `json:"action"`
	Count    int    `json:"occurrences"`
}

// Build aggregates validator output and the raw runs into a report.
func Build(guide *models.Guide, runs []*models.Run, result *validator.Result) *Report {
	r := &Report{
		GuideSource: guide.Source,
		TotalRuns:   len(runs),
		TotalSteps:  len(guide.Steps),
		Issues:      result.Issues,
		Rates:       result.Rates,
	}

	for _, issue := range result.Issues {
		switch issue.Severity {
		case models.SeverityCritical:
			r.Summary.Critical++
		case models.SeverityHigh:
			r.Summary.High++
		case models.SeverityMedium:
			r.Summary.Medium++
		default:
			r.Summary.Info++
		}
		if issue.IsDefect() {
			r.Summary.Defects++
		}
	}

	r.Breakdowns = buildBreakdowns(runs)
	r.TopFailures = topFailures(result.Issues, DefaultTopSignatures)
	r.Anomalies = platformAnomalies(runs)
	r.Recommendations = recommendations(result.Issues)
	return r
}

func buildBreakdowns(runs []*models.Run) []Breakdown {
	dims := []struct {
		name string
		key  func(*models.Run) string
	}{
		{"platform", func(r *models.Run) string { return r.Platform }},
		{"scenario", func(r *models.Run) string { return r.Scenario }},
		{"runtime-version", func(r *models.Run) string { return r.RuntimeVersion }},
	}

	var out []Breakdown
	for _, dim := range dims {
		agg := make(map[string]*Breakdown)
		var order []string
		for _, run := range runs {
			k := dim.key(run)
			b, ok := agg[k]
			if !ok {
				b = &Breakdown{Dimension: dim.name, Key: k}
				agg[k] = b
				order = append(order, k)
			}
			b.Runs++
			b.Passed += run.Summary.Passed
			b.Failed += run.Summary.Failed
			b.Skipped += run.Summary.Skipped
		}
		sort.Strings(order)
		for _, k := range order {
			out = append(out, *agg[k])
		}
	}
	return out
}

// topFailures groups defect issues by detail text and returns the N most
// recurrent, first-seen order breaking count ties.
func topFailures(issues []models.ValidationIssue, n int) []FailureSignature {
	type bucket struct {
		sig   FailureSignature
		first int
	}
	agg := make(map[string]*bucket)
	var order []string

	for i, issue := range issues {
		if !issue.IsDefect() {
			continue
		}
		b, ok := agg[issue.Detail]
		if !ok {
			b = &bucket{sig: FailureSignature{Detail: issue.Detail}, first: i}
			agg[issue.Detail] = b
			order = append(order, issue.Detail)
		}
		b.sig.Count++
		b.sig.Steps = appendUnique(b.sig.Steps, issue.Section+" / "+issue.Step)
		for _, sc := range issue.Scenarios {
			b.sig.Scenarios = appendUnique(b.sig.Scenarios, sc)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := agg[order[i]], agg[order[j]]
		if bi.sig.Count != bj.sig.Count {
			return bi.sig.Count > bj.sig.Count
		}
		return bi.first < bj.first
	})

	var out []FailureSignature
	for _, k := range order {
		out = append(out, agg[k].sig)
		if len(out) == n {
			break
		}
	}
	return out
}

// platformAnomalies finds steps failing on a strict subset of platforms.
func platformAnomalies(runs []*models.Run) []PlatformAnomaly {
	type stepKey struct{ section, title string }
	failedOn := make(map[stepKey]map[string]bool)
	passedOn := make(map[stepKey]map[string]bool)
	var order []stepKey

	for _, run := range runs {
		for _, sr := range run.Steps {
			if sr.Synthetic || sr.Status == models.StatusSkipped {
				continue
			}
			k := stepKey{sr.Section, sr.Title}
			if failedOn[k] == nil {
				failedOn[k] = make(map[string]bool)
				passedOn[k] = make(map[string]bool)
				order = append(order, k)
			}
			if sr.Status == models.StatusFailed {
				failedOn[k][run.Platform] = true
			} else {
				passedOn[k][run.Platform] = true
			}
		}
	}

	var out []PlatformAnomaly
	for _, k := range order {
		var affected, unaffected []string
		for p := range failedOn[k] {
			if !passedOn[k][p] {
				affected = append(affected, p)
			}
		}
		for p := range passedOn[k] {
			if !failedOn[k][p] {
				unaffected = append(unaffected, p)
			}
		}
		if len(affected) > 0 && len(unaffected) > 0 {
			sort.Strings(affected)
			sort.Strings(unaffected)
			out = append(out, PlatformAnomaly{
				Section:    k.section,
				Step:       k.title,
				Affected:   affected,
				Unaffected: unaffected,
			})
		}
	}
	return out
}

// recommendations derives the prioritized action list deterministically:
// severity rank first, recurrence count second, first-seen order breaks all
// remaining ties.
func recommendations(issues []models.ValidationIssue) []Recommendation {
	type bucket struct {
		rec   Recommendation
		rank  int
		first int
	}
	agg := make(map[string]*bucket)
	var order []string

	for i, issue := range issues {
		action := actionFor(issue)
		if action == "" {
			continue
		}
		b, ok := agg[action]
		if !ok {
			b = &bucket{
				rec:   Recommendation{Severity: issue.Severity, Action: action},
				rank:  models.SeverityRank(issue.Severity),
				first: i,
			}
			agg[action] = b
			order = append(order, action)
		}
		b.rec.Count++
		if models.SeverityRank(issue.Severity) > b.rank {
			b.rank = models.SeverityRank(issue.Severity)
			b.rec.Severity = issue.Severity
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := agg[order[i]], agg[order[j]]
		if bi.rank != bj.rank {
			return bi.rank > bj.rank
		}
		if bi.rec.Count != bj.rec.Count {
			return bi.rec.Count > bj.rec.Count
		}
		return bi.first < bj.first
	})

	out := make([]Recommendation, 0, len(order))
	for i, k := range order {
		rec := agg[k].rec
		rec.Priority = i + 1
		out = append(out, rec)
	}
	return out
}

func actionFor(issue models.ValidationIssue) string {
	target := issue.Step
	if issue.Section != "" {
		target = issue.Section + " / " + issue.Step
	}
	switch issue.Classification {
	case models.IssueUnexpectedFailure:
		return fmt.Sprintf("Fix step %q: it fails without any recognized environment limitation", target)
	case models.IssueMissingExecution:
		return fmt.Sprintf("Add test coverage for step %q: no run executed it", target)
	case models.IssueLowSuccessRate:
		return fmt.Sprintf("Investigate flaky command %q in step %q", issue.Command, target)
	case models.IssueInconclusive:
		return fmt.Sprintf("Capture error detail for step %q: failures could not be classified", target)
	default:
		return ""
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// HasDefects reports whether the report contains probable documentation
// defects; drives the validate command's exit code.
func (r *Report) HasDefects() bool {
	return r.Summary.Defects > 0
}

// headline is shared by both renderings.
func (r *Report) headline() string {
	if !r.HasDefects() {
		return fmt.Sprintf("Guide %s: %d run(s), no documentation defects detected", r.GuideSource, r.TotalRuns)
	}
	return fmt.Sprintf("Guide %s: %d run(s), %d probable defect(s) (%d critical, %d high)",
		r.GuideSource, r.TotalRuns, r.Summary.Defects, r.Summary.Critical, r.Summary.High)
}

// shortSeverity pads severities for aligned text output.
func shortSeverity(s string) string {
	return strings.ToUpper(fmt.Sprintf("%-8s", s))
}

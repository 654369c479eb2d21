package validator

import "regexp"

// envSignature describes a known environment-limitation failure: an error
// text pattern combined with the step operation vocabulary it applies to.
// A match downgrades a failure to expected-failure rather than a
// documentation defect.
type envSignature struct {
	Name string
	// ErrPattern matches against the aggregated error text of the failing
	// step result.
	ErrPattern *regexp.Regexp
	// OpKeywords, when non-empty, requires the step's inferred operation
	// keywords to include at least one entry.
	OpKeywords []string
}

var envSignatures = []envSignature{
	{
		Name:       "permission-on-install",
		ErrPattern: regexp.MustCompile(`(?i)(permission denied|eacces|eperm|operation not permitted)`),
		OpKeywords: []string{"install", "setup", "deploy"},
	},
	{
		Name:       "network-on-fetch",
		ErrPattern: regexp.MustCompile(`(?i)(network|econnrefused|etimedout|enotfound|could not resolve|connection (refused|reset|timed out)|tls handshake)`),
		OpKeywords: []string{"install", "download", "fetch", "clone", "update", "upgrade"},
	},
	{
		Name:       "missing-executable",
		ErrPattern: regexp.MustCompile(`(?i)(command not found|executable file not found|not recognized as an internal|no such file or directory)`),
	},
	{
		Name:       "resource-already-exists",
		ErrPattern: regexp.MustCompile(`(?i)(already exists|eexist|file exists|duplicate)`),
	},
}

// operationVocabulary maps operation categories to the keywords that signal
// them in section and step titles. Used both to infer a step's operation
// keywords and to measure how many categories a run sample covers.
var operationVocabulary = map[string][]string{
	"install":   {"install", "setup", "deploy", "add"},
	"configure": {"config", "configure", "settings", "customize"},
	"verify":    {"verify", "check", "test", "validate", "confirm"},
	"update":    {"update", "upgrade", "migrate"},
	"remove":    {"uninstall", "remove", "removal", "cleanup", "rollback", "downgrade"},
	"usage":     {"usage", "use", "run", "start", "launch"},
}

// Coverage-limitation heuristic thresholds. Pragmatic, not derived: a sample
// this small or this narrow is treated as deliberately partial rather than
// as evidence of a documentation defect.
const (
	minRunsForCoverage   = 3
	minCategoriesCovered = 3
)

// Success-rate thresholds per grouping dimension.
const (
	platformRateThreshold = 0.80
	scenarioRateThreshold = 0.85
	runtimeRateThreshold  = 0.90
)

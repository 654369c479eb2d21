// Package parser converts prose guide text into an ordered step/command
// model. Parsing is line-oriented, side-effect-free and total: malformed
// fragments become description text and a degenerate document yields zero
// steps rather than an error.
package parser

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/docproof/internal/classifier"
	"github.com/harrison/docproof/internal/models"
)

// commandLanguages are the fence tags whose blocks contribute commands.
// Blocks with any other tag (or none) accumulate into the step description.
var commandLanguages = map[string]bool{
	"bash":    true,
	"sh":      true,
	"shell":   true,
	"zsh":     true,
	"console": true,
}

var (
	sectionRegex    = regexp.MustCompile(`^#{1,2}\s+(.+?)\s*$`)
	stepRegex       = regexp.MustCompile(`^#{3,}\s+(.+?)\s*$`)
	fenceRegex      = regexp.MustCompile("^```(\\S*)\\s*$")
	shouldShowRegex = regexp.MustCompile(`^#\s*Should show:\s*(.+)$`)
	learnMoreRegex  = regexp.MustCompile(`^#\s*Learn more:\s*(\S+)`)

	// inlineShouldShowRegex and versionTokenRegex pick the inline comments
	// that read as output assertions rather than ordinary annotations.
	inlineShouldShowRegex = regexp.MustCompile(`(?i)^should show:\s*(.+)$`)
	versionTokenRegex     = regexp.MustCompile(`^v?\d+(\.\d+)+\S*$`)
)

// syntheticTitle groups headerless content into one fallback step.
const syntheticTitle = "Document"

// GuideParser parses guide text. The goldmark instance is used to walk the
// document structure as a cross-check; command extraction itself is line
// oriented because commands need line provenance.
type GuideParser struct {
	markdown goldmark.Markdown
}

// NewGuideParser returns a parser ready for use.
func NewGuideParser() *GuideParser {
	return &GuideParser{markdown: goldmark.New()}
}

// Parse converts guide text into a Guide with ordered, classified steps.
// It never fails: unparsable input degrades to description text.
func (p *GuideParser) Parse(source, content string) *models.Guide {
	guide := &models.Guide{Source: source, Text: content}
	guide.Steps = p.extractSteps(content)
	return guide
}

// HeadingOutline walks the goldmark AST and returns the document's heading
// texts in order.
func (p *GuideParser) HeadingOutline(content string) []string {
	doc := p.markdown.Parser().Parse(text.NewReader([]byte(content)))
	var outline []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			outline = append(outline, headingText(heading, []byte(content)))
		}
		return ast.WalkContinue, nil
	})
	return outline
}

// OutlineMismatches compares the goldmark heading outline against the
// headings the line scanner recognizes and returns, in document order, the
// headings only the markdown structure saw. A non-empty result usually
// means setext headings or other structure the `#`-prefix scanner treats
// as prose.
func (p *GuideParser) OutlineMismatches(content string) []string {
	known := scannedHeadings(content)
	var missed []string
	for _, h := range p.HeadingOutline(content) {
		if !known[h] {
			missed = append(missed, h)
		}
	}
	return missed
}

// scannedHeadings collects the heading texts the line scanner would
// recognize, with the same fence tracking extractSteps uses.
func scannedHeadings(content string) map[string]bool {
	out := make(map[string]bool)
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		if fenceRegex.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := sectionRegex.FindStringSubmatch(line); m != nil {
			out[strings.TrimSpace(m[1])] = true
			continue
		}
		if m := stepRegex.FindStringSubmatch(line); m != nil {
			out[strings.TrimSpace(m[1])] = true
		}
	}
	return out
}

func headingText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return sb.String()
}

// extractSteps runs the line state machine: current section, current step,
// inside-fence state with the remembered language tag.
func (p *GuideParser) extractSteps(content string) []models.Step {
	lines := strings.Split(content, "\n")

	var steps []models.Step
	var current *models.Step
	var description strings.Builder

	section := ""
	inFence := false
	fenceLang := ""

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(description.String())
		steps = append(steps, *current)
		current = nil
		description.Reset()
	}

	// ensure lazily creates the synthetic fallback step for content that
	// appears before any sub-heading.
	ensure := func(line int) {
		if current == nil {
			title := syntheticTitle
			if section != "" {
				title = section
			}
			current = &models.Step{Section: section, Title: title, Line: line}
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if m := fenceRegex.FindStringSubmatch(trimmed); m != nil {
			if inFence {
				inFence = false
				fenceLang = ""
			} else {
				inFence = true
				fenceLang = strings.ToLower(m[1])
			}
			continue
		}

		if inFence {
			if commandLanguages[fenceLang] {
				ensure(lineNo)
				p.consumeCommandLine(current, trimmed, lineNo, fenceLang)
			} else {
				if current != nil {
					description.WriteString(line)
					description.WriteString("\n")
				}
			}
			continue
		}

		if m := sectionRegex.FindStringSubmatch(line); m != nil {
			flush()
			section = strings.TrimSpace(m[1])
			continue
		}

		if m := stepRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = &models.Step{
				Section: section,
				Title:   strings.TrimSpace(m[1]),
				Line:    lineNo,
			}
			continue
		}

		if trimmed == "" {
			if current != nil {
				description.WriteString("\n")
			}
			continue
		}

		ensure(lineNo)
		description.WriteString(line)
		description.WriteString("\n")
	}

	flush()

	// Drop synthetic steps that gathered no commands and no meaningful text.
	out := steps[:0]
	for _, s := range steps {
		if len(s.Commands) == 0 && s.Description == "" && len(s.Validations) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// consumeCommandLine handles one line inside an executable fence: blank lines
// and pure comments never become commands; `# Should show:` and
// `# Learn more:` attach validations to the most recent command. Console
// transcripts prefix commands with a `$ ` prompt; the prompt is not part of
// the command.
func (p *GuideParser) consumeCommandLine(step *models.Step, line string, lineNo int, lang string) {
	if line == "" {
		return
	}

	if lang == "console" {
		if line == "$" {
			return
		}
		line = strings.TrimPrefix(line, "$ ")
	}

	if m := shouldShowRegex.FindStringSubmatch(line); m != nil {
		attachValidation(step, models.Validation{
			Kind:     models.ValidationExpectedOutput,
			Expected: strings.TrimSpace(m[1]),
			Line:     lineNo,
		})
		return
	}
	if m := learnMoreRegex.FindStringSubmatch(line); m != nil {
		attachValidation(step, models.Validation{
			Kind:     models.ValidationDocLink,
			Expected: m[1],
			Line:     lineNo,
		})
		return
	}
	if strings.HasPrefix(line, "#") {
		return
	}

	raw, comment := splitInlineComment(line)
	if raw == "" {
		return
	}

	cmd := classifier.Classify(raw, comment)
	cmd.Line = lineNo
	if expected, ok := outputExpectation(comment); ok {
		cmd.Validations = append(cmd.Validations, models.Validation{
			Kind:     models.ValidationExpectedOutput,
			Expected: expected,
			Line:     lineNo,
		})
	}
	step.Commands = append(step.Commands, cmd)
}

// outputExpectation decides whether an inline comment asserts output. Only
// an explicit `Should show:` prefix or a bare version-like token qualifies;
// prose annotations stay on the command as plain comments.
func outputExpectation(comment string) (string, bool) {
	if comment == "" {
		return "", false
	}
	if m := inlineShouldShowRegex.FindStringSubmatch(comment); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if versionTokenRegex.MatchString(comment) {
		return comment, true
	}
	return "", false
}

// attachValidation attaches to the most recently parsed command, falling back
// to the step when no command precedes the validation line.
func attachValidation(step *models.Step, v models.Validation) {
	if n := len(step.Commands); n > 0 {
		step.Commands[n-1].Validations = append(step.Commands[n-1].Validations, v)
		return
	}
	step.Validations = append(step.Validations, v)
}

// splitInlineComment separates a trailing `#`-prefixed fragment from the
// command text. Hash characters inside quotes are part of the command.
func splitInlineComment(line string) (raw, comment string) {
	inSingle := false
	inDouble := false
	for i, r := range line {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if inSingle || inDouble {
				continue
			}
			// require preceding whitespace so fragments like url#anchor survive
			if i > 0 && (line[i-1] == ' ' || line[i-1] == '\t') {
				return strings.TrimSpace(line[:i]), strings.TrimSpace(strings.TrimPrefix(line[i:], "#"))
			}
		}
	}
	return strings.TrimSpace(line), ""
}

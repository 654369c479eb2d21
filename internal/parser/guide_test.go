package parser

import (
	"reflect"
	"testing"

	"github.com/harrison/docproof/internal/models"
)

const sampleGuide = `# Installation Guide

Welcome text before any section.

## Global Installation

### Install the package

Run the installer:

` + "```bash" + `
npm install -g @anthropic-ai/claude-code
claude --version  # 1.0.0
# Should show: 1.0.0
# Learn more: https://example.com/install
` + "```" + `

### Verify configuration

` + "```bash" + `

# a comment line, not a command
cat ~/.claude/settings.json
` + "```" + `

## Method 1: NPM Package Uninstall

### Remove the package

` + "```bash" + `
npm uninstall -g @anthropic-ai/claude-code
` + "```" + `

### Notes

Some prose only, no commands.

` + "```json" + `
{"not": "a command"}
` + "```" + `
`

func TestParseSections(t *testing.T) {
	guide := NewGuideParser().Parse("guide.md", sampleGuide)

	// The welcome prose before the first sub-heading becomes a synthetic
	// step named after its section.
	if len(guide.Steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(guide.Steps))
	}
	if guide.Steps[0].Title != "Installation Guide" {
		t.Errorf("expected synthetic intro step, got %q", guide.Steps[0].Title)
	}

	install := guide.Steps[1]
	if install.Section != "Global Installation" {
		t.Errorf("expected section 'Global Installation', got %q", install.Section)
	}
	if install.Title != "Install the package" {
		t.Errorf("expected title 'Install the package', got %q", install.Title)
	}
	if len(install.Commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(install.Commands))
	}

	uninstall := guide.Steps[3]
	if uninstall.Section != "Method 1: NPM Package Uninstall" {
		t.Errorf("unexpected section %q", uninstall.Section)
	}
}

func TestCommandClassificationDuringParse(t *testing.T) {
	guide := NewGuideParser().Parse("guide.md", sampleGuide)

	install := guide.Steps[1].Commands[0]
	if install.Type != models.TypePackageInstall {
		t.Errorf("expected package-install, got %q", install.Type)
	}
	if install.Line == 0 {
		t.Error("expected line provenance on command")
	}
}

func TestValidationAttachment(t *testing.T) {
	guide := NewGuideParser().Parse("guide.md", sampleGuide)

	version := guide.Steps[1].Commands[1]
	if version.Comment != "1.0.0" {
		t.Errorf("expected inline comment '1.0.0', got %q", version.Comment)
	}

	// Inline comment + Should show + Learn more all attach to this command.
	if len(version.Validations) != 3 {
		t.Fatalf("expected 3 validations, got %d: %+v", len(version.Validations), version.Validations)
	}
	kinds := map[string]int{}
	for _, v := range version.Validations {
		kinds[v.Kind]++
	}
	if kinds[models.ValidationExpectedOutput] != 2 {
		t.Errorf("expected 2 expected-output validations, got %d", kinds[models.ValidationExpectedOutput])
	}
	if kinds[models.ValidationDocLink] != 1 {
		t.Errorf("expected 1 doc-link validation, got %d", kinds[models.ValidationDocLink])
	}
}

func TestCommentAndBlankLinesAreNotCommands(t *testing.T) {
	guide := NewGuideParser().Parse("guide.md", sampleGuide)

	verify := guide.Steps[2]
	if len(verify.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(verify.Commands))
	}
	if verify.Commands[0].Raw != "cat ~/.claude/settings.json" {
		t.Errorf("unexpected command %q", verify.Commands[0].Raw)
	}
}

func TestNonCommandFenceAccumulatesIntoDescription(t *testing.T) {
	guide := NewGuideParser().Parse("guide.md", sampleGuide)

	notes := guide.Steps[4]
	if len(notes.Commands) != 0 {
		t.Fatalf("json fence must not contribute commands, got %d", len(notes.Commands))
	}
	if notes.Description == "" {
		t.Error("expected prose accumulated into description")
	}
}

func TestParseIsIdempotent(t *testing.T) {
	p := NewGuideParser()
	a := p.Parse("guide.md", sampleGuide)
	b := p.Parse("guide.md", sampleGuide)

	if !reflect.DeepEqual(a.Steps, b.Steps) {
		t.Error("parsing identical text twice must yield identical step lists")
	}
}

func TestDegenerateDocuments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		steps int
	}{
		{"empty", "", 0},
		{"whitespace only", "\n\n   \n", 0},
		{"unclosed fence", "### Step\n```bash\necho hi\n", 1},
		{"prose only", "just some text\nwith no headings\n", 1},
	}

	p := NewGuideParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guide := p.Parse("x.md", tt.input)
			if len(guide.Steps) != tt.steps {
				t.Errorf("expected %d steps, got %d", tt.steps, len(guide.Steps))
			}
		})
	}
}

func TestHeaderlessContentFallsBackToSyntheticStep(t *testing.T) {
	guide := NewGuideParser().Parse("x.md", "```bash\necho hello\n```\n")
	if len(guide.Steps) != 1 {
		t.Fatalf("expected synthetic step, got %d steps", len(guide.Steps))
	}
	if guide.Steps[0].Title != syntheticTitle {
		t.Errorf("expected synthetic title, got %q", guide.Steps[0].Title)
	}
	if len(guide.Steps[0].Commands) != 1 {
		t.Errorf("expected 1 command, got %d", len(guide.Steps[0].Commands))
	}
}

func TestSplitInlineComment(t *testing.T) {
	tests := []struct {
		line    string
		raw     string
		comment string
	}{
		{"claude --version  # 1.0.0", "claude --version", "1.0.0"},
		{"echo 'hash # inside quotes'", "echo 'hash # inside quotes'", ""},
		{`echo "also # quoted"`, `echo "also # quoted"`, ""},
		{"curl https://example.com/page#anchor", "curl https://example.com/page#anchor", ""},
		{"plain command", "plain command", ""},
	}
	for _, tt := range tests {
		raw, comment := splitInlineComment(tt.line)
		if raw != tt.raw || comment != tt.comment {
			t.Errorf("splitInlineComment(%q) = (%q, %q), want (%q, %q)", tt.line, raw, comment, tt.raw, tt.comment)
		}
	}
}

func TestHeadingOutline(t *testing.T) {
	outline := NewGuideParser().HeadingOutline(sampleGuide)
	if len(outline) == 0 {
		t.Fatal("expected non-empty outline")
	}
	if outline[0] != "Installation Guide" {
		t.Errorf("expected first heading 'Installation Guide', got %q", outline[0])
	}
}

func TestInlineAnnotationIsNotAnAssertion(t *testing.T) {
	doc := "### Install\n```bash\nnpm install  # install dependencies\nnode --version  # v20.11.0\ncat status  # Should show: ready\n```\n"
	guide := NewGuideParser().Parse("doc.md", doc)
	if len(guide.Steps) != 1 || len(guide.Steps[0].Commands) != 3 {
		t.Fatalf("unexpected shape: %+v", guide.Steps)
	}

	annotated := guide.Steps[0].Commands[0]
	if annotated.Comment != "install dependencies" {
		t.Errorf("comment = %q", annotated.Comment)
	}
	if len(annotated.Validations) != 0 {
		t.Errorf("prose annotation became validations: %+v", annotated.Validations)
	}

	version := guide.Steps[0].Commands[1]
	if len(version.Validations) != 1 || version.Validations[0].Expected != "v20.11.0" {
		t.Errorf("version comment validations = %+v", version.Validations)
	}

	explicit := guide.Steps[0].Commands[2]
	if len(explicit.Validations) != 1 || explicit.Validations[0].Expected != "ready" {
		t.Errorf("should-show comment validations = %+v", explicit.Validations)
	}
}

func TestConsoleFenceStripsPrompt(t *testing.T) {
	doc := "### Transcript\n```console\n$ npm install -g some-tool\n$\n$ git status\n```\n"
	guide := NewGuideParser().Parse("doc.md", doc)
	if len(guide.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(guide.Steps))
	}
	cmds := guide.Steps[0].Commands
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d: %+v", len(cmds), cmds)
	}
	if cmds[0].Raw != "npm install -g some-tool" {
		t.Errorf("prompt not stripped: %q", cmds[0].Raw)
	}
	if cmds[1].Raw != "git status" {
		t.Errorf("prompt not stripped: %q", cmds[1].Raw)
	}
}

func TestOutlineMismatches(t *testing.T) {
	if missed := NewGuideParser().OutlineMismatches(sampleGuide); len(missed) != 0 {
		t.Errorf("expected agreement on sample guide, got %v", missed)
	}

	setext := "Getting Started\n===============\n\nSome intro text.\n\n### Install\n```bash\necho hi\n```\n"
	missed := NewGuideParser().OutlineMismatches(setext)
	if len(missed) != 1 || missed[0] != "Getting Started" {
		t.Errorf("expected setext heading to be reported, got %v", missed)
	}

	fenced := "## Setup\n```text\n# not a heading\n```\n"
	if missed := NewGuideParser().OutlineMismatches(fenced); len(missed) != 0 {
		t.Errorf("fenced pseudo-heading reported: %v", missed)
	}
}

package rules

import (
	"reflect"
	"strings"
	"testing"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/message"
	"github.com/commitward/commitward/internal/resolve"
	"github.com/commitward/commitward/internal/secrets"
)

func msg(t *testing.T, raw string) *message.Message {
	t.Helper()
	m, err := message.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", raw, err)
	}
	return m
}

func violationsFor(v Verdict, rule string) []Violation {
	var out []Violation
	for _, viol := range v.Violations {
		if viol.Rule == rule {
			out = append(out, viol)
		}
	}
	return out
}

func TestSubjectTooLongReportsActualLength(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.MaxSubjectLength = 10
	cfg.Rules.MinSubjectLength = 0
	engine := NewEngine(cfg)

	verdict := engine.Evaluate(Input{
		Message: msg(t, "fix: this subject is much longer than ten characters"),
	})

	viols := violationsFor(verdict, "subject-too-long")
	if len(viols) != 1 {
		t.Fatalf("expected 1 subject-too-long violation, got %d", len(viols))
	}
	v := viols[0]
	if v.Severity != SeverityError {
		t.Errorf("expected error severity, got %v", v.Severity)
	}
	// The message names the actual and the allowed length.
	if !strings.Contains(v.Message, "47") || !strings.Contains(v.Message, "(max 10)") {
		t.Errorf("violation message lacks lengths: %q", v.Message)
	}
	if verdict.Pass() {
		t.Error("error violation must fail the verdict")
	}
}

func TestSubjectBounds(t *testing.T) {
	engine := NewEngine(config.Default())

	verdict := engine.Evaluate(Input{Message: msg(t, "fix: tiny")})
	if len(violationsFor(verdict, "subject-too-short")) != 1 {
		t.Error("expected subject-too-short for 4-character subject")
	}

	verdict = engine.Evaluate(Input{Message: msg(t, "fix: handle empty bucket iterator")})
	if len(verdict.Violations) != 0 {
		t.Errorf("expected clean verdict, got %v", verdict.Violations)
	}
}

func TestTypeRules(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.ForbiddenTypes = []string{"wip"}
	cfg.Rules.AllowedTypes = append(cfg.Rules.AllowedTypes, "wip")
	engine := NewEngine(cfg)

	verdict := engine.Evaluate(Input{Message: msg(t, "wip: half finished thing")})
	if len(violationsFor(verdict, "type-forbidden")) != 1 {
		t.Error("expected type-forbidden for wip")
	}

	verdict = engine.Evaluate(Input{Message: msg(t, "yolo: unknown type here")})
	if len(violationsFor(verdict, "type-not-allowed")) != 1 {
		t.Error("expected type-not-allowed for yolo")
	}
}

func TestTypeRuleUsesClassificationWithoutMessage(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.AllowedTypes = []string{"fix"}
	engine := NewEngine(cfg)

	verdict := engine.Evaluate(Input{
		Classification: classify.Classification{Type: "feat"},
	})
	if len(violationsFor(verdict, "type-not-allowed")) != 1 {
		t.Error("inferred type must be checked when no message is present")
	}
}

func TestScopeRequiredFallsBackToClassification(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.RequireScope = true
	engine := NewEngine(cfg)

	// No message: the resolved scope satisfies the requirement.
	verdict := engine.Evaluate(Input{
		Classification: classify.Classification{Type: "docs", Scopes: []string{"docs-site"}},
	})
	if len(violationsFor(verdict, "scope-required")) != 0 {
		t.Error("resolved scope should satisfy scope-required")
	}

	// No message and no resolvable scope: violation.
	verdict = engine.Evaluate(Input{
		Classification: classify.Classification{Type: "docs"},
	})
	if len(violationsFor(verdict, "scope-required")) != 1 {
		t.Error("expected scope-required without any scope")
	}

	// An explicit message without scope is checked as written.
	verdict = engine.Evaluate(Input{
		Classification: classify.Classification{Type: "docs", Scopes: []string{"docs-site"}},
		Message:        msg(t, "docs: update the user guide"),
	})
	if len(violationsFor(verdict, "scope-required")) != 1 {
		t.Error("explicit scopeless message must violate scope-required")
	}
}

func TestSubjectShapeWarnings(t *testing.T) {
	engine := NewEngine(config.Default())

	verdict := engine.Evaluate(Input{
		Message: msg(t, "fix: Added handling for empty buckets."),
	})

	for _, rule := range []string{"subject-case", "subject-trailing-period", "subject-imperative"} {
		viols := violationsFor(verdict, rule)
		if len(viols) != 1 {
			t.Errorf("expected one %s violation, got %d", rule, len(viols))
			continue
		}
		if viols[0].Severity != SeverityWarning {
			t.Errorf("%s must be a warning, got %v", rule, viols[0].Severity)
		}
	}
	// Warnings alone never fail the verdict.
	if !verdict.Pass() {
		t.Error("warnings must not fail the verdict")
	}
}

func TestSecretBlockSeverity(t *testing.T) {
	findings := []secrets.Finding{
		{Path: "config/deploy.go", Line: 4, Pattern: "aws-access-key", Excerpt: "AKIA************MPLE"},
	}

	engine := NewEngine(config.Default())
	verdict := engine.Evaluate(Input{Findings: findings})
	viols := violationsFor(verdict, "secret-block")
	if len(viols) != 1 || viols[0].Severity != SeverityError {
		t.Errorf("block_on_secret must produce an error, got %v", viols)
	}
	if viols[0].Path != "config/deploy.go" || viols[0].Line != 4 {
		t.Errorf("violation must carry the finding location, got %+v", viols[0])
	}

	cfg := config.Default()
	cfg.Security.BlockOnSecret = false
	verdict = NewEngine(cfg).Evaluate(Input{Findings: findings})
	viols = violationsFor(verdict, "secret-block")
	if len(viols) != 1 || viols[0].Severity != SeverityWarning {
		t.Errorf("without blocking, findings must degrade to warnings, got %v", viols)
	}
}

func TestScopeAmbiguousWarning(t *testing.T) {
	engine := NewEngine(config.Default())
	verdict := engine.Evaluate(Input{
		Ambiguities: []resolve.Ambiguity{{Path: "shared/x.go", Roots: []string{"shared", "shared"}}},
	})
	viols := violationsFor(verdict, "scope-ambiguous")
	if len(viols) != 1 || viols[0].Severity != SeverityWarning {
		t.Errorf("ambiguity must surface as a warning, got %v", viols)
	}
	if !verdict.Pass() {
		t.Error("ambiguity alone must not fail the verdict")
	}
}

func TestPathRule(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.Paths = map[string]config.PathRule{
		"migrations/**": {Type: "feat"},
	}
	engine := NewEngine(cfg)

	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "migrations/0042_add_index.sql", Kind: diff.KindAdded},
	}}

	verdict := engine.Evaluate(Input{
		ChangeSet: cs,
		Message:   msg(t, "chore: add index migration for events"),
	})
	if len(violationsFor(verdict, "path:migrations/**")) != 1 {
		t.Error("expected path rule violation for wrong type")
	}

	// Unmatched change sets never trigger the rule.
	other := &diff.ChangeSet{Files: []diff.FileChange{{Path: "internal/x.go"}}}
	verdict = engine.Evaluate(Input{
		ChangeSet: other,
		Message:   msg(t, "chore: tidy the helpers a bit"),
	})
	if len(violationsFor(verdict, "path:migrations/**")) != 0 {
		t.Error("path rule fired without a matching path")
	}
}

func TestBranchRule(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.Branches = map[string]config.BranchRule{
		"release/*": {AllowedTypes: []string{"fix", "chore"}},
	}
	engine := NewEngine(cfg)

	verdict := engine.Evaluate(Input{
		Branch:  "release/v2.3",
		Message: msg(t, "feat: brand new thing on a release branch"),
	})
	if len(violationsFor(verdict, "branch:release/*")) != 1 {
		t.Error("expected branch rule violation for feat on release branch")
	}

	verdict = engine.Evaluate(Input{
		Branch:  "main",
		Message: msg(t, "feat: brand new thing on main branch"),
	})
	if len(violationsFor(verdict, "branch:release/*")) != 0 {
		t.Error("branch rule fired on non-matching branch")
	}

	// Unknown branch: scoped rules are skipped, not failed.
	verdict = engine.Evaluate(Input{
		Message: msg(t, "feat: branch name is not available"),
	})
	if len(violationsFor(verdict, "branch:release/*")) != 0 {
		t.Error("branch rule fired without a branch name")
	}
}

func TestEvaluateIsCompleteAndDeterministic(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.MaxSubjectLength = 20
	cfg.Rules.RequireScope = true
	engine := NewEngine(cfg)

	in := Input{
		Message:  msg(t, "fix: This extremely long subject definitely exceeds the limit."),
		Findings: []secrets.Finding{{Path: "a.go", Line: 1, Pattern: "jwt", Excerpt: "eyJ*"}},
	}

	first := engine.Evaluate(in)
	// All applicable rules report; no short-circuit after the first error.
	for _, rule := range []string{"subject-too-long", "scope-required", "subject-case", "subject-trailing-period", "secret-block"} {
		if len(violationsFor(first, rule)) == 0 {
			t.Errorf("missing %s in complete verdict", rule)
		}
	}

	for i := 0; i < 5; i++ {
		again := engine.Evaluate(in)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("verdict changed between evaluations")
		}
	}
}

func TestValidateMessageOnlyRunsMessageRules(t *testing.T) {
	engine := NewEngine(config.Default())

	verdict := engine.ValidateMessage(msg(t, "fix: handle empty bucket iterator"), nil, "")
	if len(verdict.Violations) != 0 {
		t.Errorf("expected clean message verdict, got %v", verdict.Violations)
	}

	verdict = engine.ValidateMessage(msg(t, "fix: nope"), nil, "")
	if len(violationsFor(verdict, "subject-too-short")) != 1 {
		t.Error("expected subject-too-short from ValidateMessage")
	}
}

func TestVerdictCounts(t *testing.T) {
	v := Verdict{Violations: []Violation{
		{Severity: SeverityError},
		{Severity: SeverityWarning},
		{Severity: SeverityWarning},
	}}
	errs, warns := v.Counts()
	if errs != 1 || warns != 2 {
		t.Errorf("Counts() = (%d, %d), want (1, 2)", errs, warns)
	}
	if v.Pass() {
		t.Error("verdict with an error must not pass")
	}
}

func TestSynthesizedDraftPassesOwnRules(t *testing.T) {
	cfg := config.Default()
	engine := NewEngine(cfg)

	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "internal/export/csv.go", Kind: diff.KindAdded, AddedLines: 40},
	}}
	cl := classify.Classification{Type: "feat", Confidence: 0.5}

	draft := message.Synthesize(cl, cs, cfg)
	verdict := engine.ValidateMessage(draft, cs, "")
	errs, _ := verdict.Counts()
	if errs != 0 {
		t.Errorf("synthesized draft must pass its own message rules, got %v", verdict.Violations)
	}
}

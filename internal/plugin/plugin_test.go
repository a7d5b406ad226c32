package plugin

import (
	"errors"
	"testing"
	"time"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/resolve"
	"github.com/commitward/commitward/internal/rules"
)

func strptr(s string) *string { return &s }

func TestApplyClassifyOverride(t *testing.T) {
	r := NewRegistry()
	r.RegisterClassify("model", func(cs *diff.ChangeSet, res *resolve.Resolution) (*Override, error) {
		return &Override{Type: strptr("perf"), Confidence: 0.9}, nil
	})

	built := classify.Classification{Type: "fix", Scopes: []string{"core"}, Confidence: 0.6}
	merged := r.ApplyClassify(nil, nil, built)

	if merged.Type != "perf" {
		t.Errorf("higher-confidence override must win, got type %q", merged.Type)
	}
	if merged.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", merged.Confidence)
	}
	// Fields the override left nil keep the built-in values.
	if len(merged.Scopes) != 1 || merged.Scopes[0] != "core" {
		t.Errorf("unset override fields must not clear built-ins, got %v", merged.Scopes)
	}
}

func TestApplyClassifyTieFavorsBuiltin(t *testing.T) {
	r := NewRegistry()
	r.RegisterClassify("model", func(cs *diff.ChangeSet, res *resolve.Resolution) (*Override, error) {
		return &Override{Type: strptr("perf"), Confidence: 0.6}, nil
	})

	built := classify.Classification{Type: "fix", Confidence: 0.6}
	merged := r.ApplyClassify(nil, nil, built)
	if merged.Type != "fix" {
		t.Errorf("equal confidence must keep the built-in result, got %q", merged.Type)
	}
}

func TestApplyClassifyHookFailureIsNotFatal(t *testing.T) {
	r := NewRegistry()
	r.RegisterClassify("broken", func(cs *diff.ChangeSet, res *resolve.Resolution) (*Override, error) {
		return nil, errors.New("backend unavailable")
	})
	r.RegisterClassify("panicky", func(cs *diff.ChangeSet, res *resolve.Resolution) (*Override, error) {
		panic("boom")
	})

	built := classify.Classification{Type: "fix", Confidence: 0.6}
	merged := r.ApplyClassify(nil, nil, built)
	if merged.Type != "fix" || merged.Confidence != 0.6 {
		t.Errorf("failing hooks must leave the classification untouched, got %+v", merged)
	}
}

func TestHookTimeout(t *testing.T) {
	r := NewRegistry()
	r.SetTimeout(10 * time.Millisecond)
	r.RegisterClassify("slow", func(cs *diff.ChangeSet, res *resolve.Resolution) (*Override, error) {
		time.Sleep(200 * time.Millisecond)
		return &Override{Type: strptr("perf"), Confidence: 1.0}, nil
	})

	built := classify.Classification{Type: "fix", Confidence: 0.6}
	start := time.Now()
	merged := r.ApplyClassify(nil, nil, built)
	if time.Since(start) > 150*time.Millisecond {
		t.Error("timed-out hook blocked the pipeline")
	}
	if merged.Type != "fix" {
		t.Errorf("timed-out hook must produce no result, got %q", merged.Type)
	}
}

func TestApplyRules(t *testing.T) {
	r := NewRegistry()
	r.RegisterRule("policy", func(in rules.Input) ([]rules.Violation, error) {
		return []rules.Violation{{Rule: "policy-extra", Severity: rules.SeverityWarning, Message: "flagged"}}, nil
	})
	r.RegisterRule("broken", func(in rules.Input) ([]rules.Violation, error) {
		return nil, errors.New("nope")
	})

	extra := r.ApplyRules(rules.Input{})
	if len(extra) != 1 || extra[0].Rule != "policy-extra" {
		t.Errorf("expected one extra violation, got %v", extra)
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	built := classify.Classification{Type: "chore"}
	if got := r.ApplyClassify(nil, nil, built); got.Type != "chore" {
		t.Errorf("nil registry must pass through, got %+v", got)
	}
	if got := r.ApplyRules(rules.Input{}); got != nil {
		t.Errorf("nil registry must produce no violations, got %v", got)
	}
}

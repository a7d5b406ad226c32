// Package rules evaluates a declarative rule set against a classified
// change set, scanner findings, and a commit message.
package rules

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/message"
	"github.com/commitward/commitward/internal/resolve"
	"github.com/commitward/commitward/internal/secrets"
)

// Severity of a violation. Only errors fail the operation.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Violation is one rule failure. Violations are ordinary data: the engine
// never turns them into errors.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Path     string // optional
	Line     int    // optional
}

func (v Violation) String() string {
	loc := ""
	if v.Path != "" {
		loc = " " + v.Path
		if v.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, v.Line)
		}
	}
	return fmt.Sprintf("[%s] %s:%s %s", v.Severity, v.Rule, loc, v.Message)
}

// Verdict is the complete, ordered result of one evaluation. It is
// produced fresh per call and immutable once returned.
type Verdict struct {
	Violations []Violation
}

// Pass reports whether the operation may proceed: it fails iff at least
// one error-severity violation is present.
func (v *Verdict) Pass() bool {
	for _, viol := range v.Violations {
		if viol.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Counts returns the number of error and warning violations.
func (v *Verdict) Counts() (errors, warnings int) {
	for _, viol := range v.Violations {
		if viol.Severity == SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return
}

// Input is everything a rule may look at. Evaluation is a pure function
// of this value: identical inputs always yield an identical Verdict.
type Input struct {
	Classification classify.Classification
	ChangeSet      *diff.ChangeSet
	Findings       []secrets.Finding
	Message        *message.Message // nil when validating a diff alone
	Branch         string           // supplied externally, "" when unknown
	Ambiguities    []resolve.Ambiguity
}

// Rule is a total, side-effect-free predicate producing zero or more
// violations.
type Rule struct {
	ID string
	// MessageShape marks rules that only inspect the commit message;
	// ValidateMessage evaluates just these.
	MessageShape bool
	// PathGlob restricts the rule to change sets where at least one
	// changed path matches. Empty means always applicable.
	PathGlob string
	// BranchGlob restricts the rule to matching branch names. Empty
	// means always applicable.
	BranchGlob string
	Check      func(in Input) []Violation
}

func (r Rule) applies(in Input) bool {
	if r.PathGlob != "" {
		matched := false
		if in.ChangeSet != nil {
			for i := range in.ChangeSet.Files {
				if ok, err := doublestar.Match(r.PathGlob, in.ChangeSet.Files[i].Path); err == nil && ok {
					matched = true
					break
				}
			}
		}
		if !matched {
			return false
		}
	}
	if r.BranchGlob != "" {
		if in.Branch == "" {
			return false
		}
		if ok, err := doublestar.Match(r.BranchGlob, in.Branch); err != nil || !ok {
			return false
		}
	}
	return true
}

// Engine holds an ordered, immutable rule set. Build one per invocation
// and share it freely; evaluation never mutates it.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine with the built-in rules for a configuration.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{rules: builtinRules(cfg)}
}

// Append adds rules after the built-ins, preserving configured order.
func (e *Engine) Append(rules ...Rule) {
	e.rules = append(e.rules, rules...)
}

// Rules returns the engine's rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate runs every rule in order. There is no short-circuit: the
// Verdict is complete, not first-failure-only.
func (e *Engine) Evaluate(in Input) Verdict {
	var verdict Verdict
	for _, rule := range e.rules {
		if !rule.applies(in) {
			continue
		}
		verdict.Violations = append(verdict.Violations, rule.Check(in)...)
	}
	return verdict
}

// ValidateMessage evaluates only the message-shape rules, used for
// check-style validation of existing commits.
func (e *Engine) ValidateMessage(msg *message.Message, cs *diff.ChangeSet, branch string) Verdict {
	in := Input{Message: msg, ChangeSet: cs, Branch: branch}
	var verdict Verdict
	for _, rule := range e.rules {
		if !rule.MessageShape || !rule.applies(in) {
			continue
		}
		verdict.Violations = append(verdict.Violations, rule.Check(in)...)
	}
	return verdict
}

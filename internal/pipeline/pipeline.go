// Package pipeline chains the analysis stages: diff model, package
// resolution, secret scanning, classification, rule evaluation, and
// message synthesis. Each stage owns its output exclusively; re-running
// any stage is side-effect free.
package pipeline

import (
	"sync"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/message"
	"github.com/commitward/commitward/internal/plugin"
	"github.com/commitward/commitward/internal/resolve"
	"github.com/commitward/commitward/internal/rules"
	"github.com/commitward/commitward/internal/secrets"
)

// Pipeline holds the once-loaded, read-only inputs for a process
// invocation: configuration, package set, rule engine, and hooks.
// Concurrent runs share it safely without locking.
type Pipeline struct {
	cfg        *config.Config
	packages   []resolve.Package
	classifier *classify.Classifier
	scanner    *secrets.Scanner
	engine     *rules.Engine
	hooks      *plugin.Registry
}

// New wires a pipeline from configuration. packages is the resolved
// manifest set (see resolve.Detect); hooks may be nil.
func New(cfg *config.Config, packages []resolve.Package, hooks *plugin.Registry) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		packages:   packages,
		classifier: classify.New(cfg),
		scanner:    secrets.New(cfg),
		engine:     rules.NewEngine(cfg),
		hooks:      hooks,
	}
}

// Engine exposes the rule engine for message-only validation.
func (p *Pipeline) Engine() *rules.Engine {
	return p.engine
}

// Result is the structured outcome of one pipeline run.
type Result struct {
	ChangeSet      *diff.ChangeSet
	Resolution     *resolve.Resolution
	Classification classify.Classification
	Findings       []secrets.Finding
	Verdict        rules.Verdict
	// Draft is the synthesized message when no message text was supplied.
	Draft *message.Message
}

// Run executes the full chain over one diff. msgText may be empty, in
// which case a draft message is synthesized instead of validated. Branch
// is external context for branch-scoped rules; "" disables them.
//
// Malformed diffs and encoding problems are fatal and propagate; rule
// violations are data in the Verdict, never errors.
func (p *Pipeline) Run(rawDiff, msgText, branch string) (*Result, error) {
	cs, err := diff.Parse(rawDiff)
	if err != nil {
		return nil, err
	}
	return p.run(cs, msgText, branch), nil
}

func (p *Pipeline) run(cs *diff.ChangeSet, msgText, branch string) *Result {
	res := resolve.Resolve(cs, p.packages, p.cfg.Monorepo.RootScope)
	findings := p.scanner.Scan(cs)

	cl := p.classifier.Classify(cs, res)
	cl = p.hooks.ApplyClassify(cs, res, cl)

	in := rules.Input{
		Classification: cl,
		ChangeSet:      cs,
		Findings:       findings,
		Branch:         branch,
		Ambiguities:    res.Ambiguities,
	}

	result := &Result{
		ChangeSet:      cs,
		Resolution:     res,
		Classification: cl,
		Findings:       findings,
	}

	if msgText != "" {
		msg, err := message.Parse(msgText)
		if err != nil {
			// An unparseable message is a violation, not a crash: the
			// verdict stays complete for CI output.
			in.Message = nil
			result.Verdict = p.evaluate(in)
			result.Verdict.Violations = append([]rules.Violation{{
				Rule:     "message-format",
				Severity: rules.SeverityError,
				Message:  err.Error(),
				Line:     1,
			}}, result.Verdict.Violations...)
			return result
		}
		in.Message = msg
	}

	result.Verdict = p.evaluate(in)

	if msgText == "" {
		result.Draft = message.Synthesize(cl, cs, p.cfg)
	}
	return result
}

func (p *Pipeline) evaluate(in rules.Input) rules.Verdict {
	verdict := p.engine.Evaluate(in)
	verdict.Violations = append(verdict.Violations, p.hooks.ApplyRules(in)...)
	return verdict
}

// ValidateMessage checks message text against the message-shape rules
// using an already-parsed change set (a stored commit's own diff), without
// re-deriving a classification.
func (p *Pipeline) ValidateMessage(msgText string, cs *diff.ChangeSet, branch string) rules.Verdict {
	msg, err := message.Parse(msgText)
	if err != nil {
		return rules.Verdict{Violations: []rules.Violation{{
			Rule:     "message-format",
			Severity: rules.SeverityError,
			Message:  err.Error(),
			Line:     1,
		}}}
	}
	return p.engine.ValidateMessage(msg, cs, branch)
}

// Unit is one independent commit to check.
type Unit struct {
	ID      string // commit SHA or other caller label
	Diff    string
	Message string
	Branch  string
}

// Outcome pairs a unit with its pipeline result, in input order.
type Outcome struct {
	ID     string
	Result *Result
	Err    error
}

// CheckAll runs independent units concurrently across workers and collects
// outcomes in input order for deterministic output. Units share only the
// pipeline's immutable inputs.
func CheckAll(p *Pipeline, units []Unit, workers int) []Outcome {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(units) {
		workers = len(units)
	}

	outcomes := make([]Outcome, len(units))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				u := units[i]
				result, err := p.Run(u.Diff, u.Message, u.Branch)
				outcomes[i] = Outcome{ID: u.ID, Result: result, Err: err}
			}
		}()
	}

	for i := range units {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// Package plugin defines the extension-point contract for classify and
// rule hooks. Any host (in-process function table, subprocess, sandboxed
// runtime) can satisfy it; the core never knows which.
package plugin

import (
	"fmt"
	"log"
	"time"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/resolve"
	"github.com/commitward/commitward/internal/rules"
)

// Override is a partial Classification produced by a classify hook. Only
// non-nil fields replace the built-in result, and only when the override's
// confidence beats the built-in's. Ties resolve in favor of the built-in
// result.
type Override struct {
	Type       *string
	Scopes     []string
	Breaking   *bool
	Confidence float64
}

// ClassifyHook proposes a partial Classification override for a change set.
type ClassifyHook func(cs *diff.ChangeSet, res *resolve.Resolution) (*Override, error)

// RuleHook produces additional violations for an evaluation input.
type RuleHook func(in rules.Input) ([]rules.Violation, error)

// DefaultTimeout bounds each hook invocation.
const DefaultTimeout = 2 * time.Second

type namedClassify struct {
	name string
	hook ClassifyHook
}

type namedRule struct {
	name string
	hook RuleHook
}

// Registry holds registered hooks. A hook that fails, panics, or times out
// produced no result; the failure is logged and never fatal.
type Registry struct {
	classifyHooks []namedClassify
	ruleHooks     []namedRule
	timeout       time.Duration
}

// NewRegistry returns an empty registry with the default hook timeout.
func NewRegistry() *Registry {
	return &Registry{timeout: DefaultTimeout}
}

// SetTimeout overrides the per-hook timeout.
func (r *Registry) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// RegisterClassify adds a classify hook under a name used in logs.
func (r *Registry) RegisterClassify(name string, hook ClassifyHook) {
	r.classifyHooks = append(r.classifyHooks, namedClassify{name, hook})
}

// RegisterRule adds a rule hook under a name used in logs.
func (r *Registry) RegisterRule(name string, hook RuleHook) {
	r.ruleHooks = append(r.ruleHooks, namedRule{name, hook})
}

// ApplyClassify merges hook overrides into the built-in classification.
// Overrides replace only the fields they set; an override at or below the
// built-in confidence yields to the built-in result.
func (r *Registry) ApplyClassify(cs *diff.ChangeSet, res *resolve.Resolution, built classify.Classification) classify.Classification {
	if r == nil {
		return built
	}
	merged := built
	for _, h := range r.classifyHooks {
		override, err := runHook(r.timeout, func() (*Override, error) { return h.hook(cs, res) })
		if err != nil {
			log.Printf("classify hook %s: %v", h.name, err)
			continue
		}
		if override == nil || override.Confidence <= merged.Confidence {
			continue
		}
		if override.Type != nil {
			merged.Type = *override.Type
		}
		if override.Scopes != nil {
			merged.Scopes = append([]string(nil), override.Scopes...)
		}
		if override.Breaking != nil {
			merged.Breaking = *override.Breaking
		}
		merged.Confidence = override.Confidence
	}
	return merged
}

// ApplyRules collects additional violations from every rule hook; callers
// append them to the built-in verdict.
func (r *Registry) ApplyRules(in rules.Input) []rules.Violation {
	if r == nil {
		return nil
	}
	var extra []rules.Violation
	for _, h := range r.ruleHooks {
		viols, err := runHook(r.timeout, func() ([]rules.Violation, error) { return h.hook(in) })
		if err != nil {
			log.Printf("rule hook %s: %v", h.name, err)
			continue
		}
		extra = append(extra, viols...)
	}
	return extra
}

// runHook executes fn bounded by the timeout, converting panics and
// timeouts into errors so one bad hook cannot take down the pipeline.
func runHook[T any](timeout time.Duration, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				ch <- result{zero, fmt.Errorf("hook panicked: %v", p)}
			}
		}()
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-time.After(timeout):
		var zero T
		return zero, fmt.Errorf("hook timed out after %s", timeout)
	}
}

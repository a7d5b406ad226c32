// Package classify infers conventional-commit type, scope, and breaking
// signal from a parsed change set.
package classify

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/resolve"
)

// MultiScope is the scope used when more packages changed than max_scopes
// allows listing.
const MultiScope = "multi"

// Classification is the inferred description of a change set. Values are
// never mutated after creation; re-running produces a new value.
type Classification struct {
	Type       string
	Scopes     []string // candidates, most-touched package first
	Breaking   bool
	Confidence float64 // in [0, 1]
	Reason     string
}

// PrimaryScope returns the most-touched scope candidate, or "".
func (c Classification) PrimaryScope() string {
	if len(c.Scopes) == 0 {
		return ""
	}
	return c.Scopes[0]
}

// Classifier runs the priority-ordered heuristic decision list.
type Classifier struct {
	cfg       config.ClassifyConfig
	maxScopes int
}

// New returns a classifier for the given configuration.
func New(cfg *config.Config) *Classifier {
	return &Classifier{cfg: cfg.Classify, maxScopes: cfg.Monorepo.MaxScopes}
}

type candidate struct {
	typ    string
	score  float64
	reason string
}

// Classify never fails; an unclassifiable change set yields type "chore"
// with confidence 0.
func (c *Classifier) Classify(cs *diff.ChangeSet, res *resolve.Resolution) Classification {
	if len(cs.Files) == 0 {
		return Classification{Type: "chore", Reason: "empty change set"}
	}

	breaking := c.hasBreakingMarker(cs)

	// Heuristics in priority order; the first one wins, the rest only
	// dilute confidence when they would have fired too.
	var candidates []candidate
	if c.allMatch(cs, c.cfg.TestPatterns) {
		candidates = append(candidates, candidate{"test", 0.95, "only test files changed"})
	}
	if c.allMatch(cs, c.cfg.DocsPatterns) {
		candidates = append(candidates, candidate{"docs", 0.95, "only documentation files changed"})
	}
	if deletionsOnly(cs) {
		candidates = append(candidates, candidate{"chore", 0.4, "only deletions"})
	}
	if smallModificationsOnly(cs, c.cfg.SmallHunkLines) {
		candidates = append(candidates, candidate{"fix", 0.6, "small edits to existing lines"})
	} else {
		candidates = append(candidates, candidate{"feat", 0.5, "new files or significant additions"})
	}

	chosen := candidates[0]
	confidence := chosen.score - 0.1*float64(len(candidates)-1)

	if breaking && (chosen.typ == "feat" || chosen.typ == "fix") {
		confidence += 0.15
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Classification{
		Type:       chosen.typ,
		Scopes:     c.scopeCandidates(cs, res),
		Breaking:   breaking,
		Confidence: confidence,
		Reason:     chosen.reason,
	}
}

// allMatch reports whether every changed path matches at least one pattern.
func (c *Classifier) allMatch(cs *diff.ChangeSet, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	for i := range cs.Files {
		if !anyGlob(patterns, cs.Files[i].Path) {
			return false
		}
	}
	return true
}

func anyGlob(patterns []string, path string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}

func deletionsOnly(cs *diff.ChangeSet) bool {
	sawDeletion := false
	for i := range cs.Files {
		f := &cs.Files[i]
		if f.Kind == diff.KindDeleted {
			sawDeletion = true
			continue
		}
		if f.AddedLines > 0 || f.Kind == diff.KindAdded {
			return false
		}
	}
	return sawDeletion
}

// smallModificationsOnly reports whether the diff only edits existing files
// in hunks no larger than limit lines.
func smallModificationsOnly(cs *diff.ChangeSet, limit int) bool {
	if limit <= 0 {
		limit = 12
	}
	for i := range cs.Files {
		f := &cs.Files[i]
		if f.Kind != diff.KindModified {
			return false
		}
		for _, h := range f.Hunks {
			if h.NewLines > limit || h.OldLines > limit {
				return false
			}
		}
	}
	return len(cs.Files) > 0
}

func (c *Classifier) hasBreakingMarker(cs *diff.ChangeSet) bool {
	if len(c.cfg.BreakingMarkers) == 0 {
		return false
	}
	found := false
	cs.AddedLines(func(path string, lineNum int, text string) {
		if found {
			return
		}
		for _, marker := range c.cfg.BreakingMarkers {
			if strings.Contains(text, marker) {
				found = true
				return
			}
		}
	})
	return found
}

// scopeCandidates returns touched package identifiers sorted by changed
// line count descending, names ascending on ties. The synthetic root
// package never contributes a scope. More than maxScopes packages collapse
// to the single candidate "multi".
func (c *Classifier) scopeCandidates(cs *diff.ChangeSet, res *resolve.Resolution) []string {
	if res == nil {
		return nil
	}

	lines := make(map[string]int)
	for i := range cs.Files {
		f := &cs.Files[i]
		pkg := res.PackageFor(f.Path)
		if pkg.IsRoot() {
			continue
		}
		lines[pkg.Name] += f.TotalChanged()
	}
	if len(lines) == 0 {
		return nil
	}

	scopes := make([]string, 0, len(lines))
	for name := range lines {
		scopes = append(scopes, name)
	}
	sort.Slice(scopes, func(i, j int) bool {
		if lines[scopes[i]] != lines[scopes[j]] {
			return lines[scopes[i]] > lines[scopes[j]]
		}
		return scopes[i] < scopes[j]
	})

	if c.maxScopes > 0 && len(scopes) > c.maxScopes {
		return []string{MultiScope}
	}
	return scopes
}

package classify

import (
	"testing"

	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/resolve"
)

func classifier(t *testing.T) *Classifier {
	t.Helper()
	return New(config.Default())
}

func resolution(cs *diff.ChangeSet, packages []resolve.Package) *resolve.Resolution {
	return resolve.Resolve(cs, packages, "root")
}

func TestClassifyEmpty(t *testing.T) {
	cs := &diff.ChangeSet{}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if cl.Type != "chore" {
		t.Errorf("expected chore for empty change set, got %q", cl.Type)
	}
	if cl.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", cl.Confidence)
	}
}

func TestClassifyDocsOnly(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "docs/guide.md", Kind: diff.KindModified, AddedLines: 5},
		{Path: "README.md", Kind: diff.KindModified, AddedLines: 2},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if cl.Type != "docs" {
		t.Errorf("expected docs, got %q (%s)", cl.Type, cl.Reason)
	}
	if cl.Confidence < 0.8 {
		t.Errorf("expected high confidence for docs-only, got %f", cl.Confidence)
	}
}

func TestClassifyTestsOnly(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "internal/store/store_test.go", Kind: diff.KindModified, AddedLines: 30},
		{Path: "tests/fixtures.go", Kind: diff.KindAdded, AddedLines: 10},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if cl.Type != "test" {
		t.Errorf("expected test, got %q (%s)", cl.Type, cl.Reason)
	}
}

func TestClassifyDeletionsOnly(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "legacy/old.go", Kind: diff.KindDeleted, RemovedLines: 120},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if cl.Type != "chore" {
		t.Errorf("expected chore for pure deletion, got %q", cl.Type)
	}
}

func TestClassifySmallModificationIsFix(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{
			Path: "internal/auth/token.go", Kind: diff.KindModified,
			AddedLines: 2, RemovedLines: 2,
			Hunks: []diff.Hunk{{OldStart: 40, OldLines: 5, NewStart: 40, NewLines: 5}},
		},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if cl.Type != "fix" {
		t.Errorf("expected fix for small edit, got %q (%s)", cl.Type, cl.Reason)
	}
}

func TestClassifyNewFileIsFeat(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "internal/export/csv.go", Kind: diff.KindAdded, AddedLines: 80},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if cl.Type != "feat" {
		t.Errorf("expected feat for new file, got %q (%s)", cl.Type, cl.Reason)
	}
}

func TestClassifyBreakingMarker(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{
			Path: "api/client.go", Kind: diff.KindAdded, AddedLines: 2,
			Hunks: []diff.Hunk{{
				NewStart: 1, NewLines: 2,
				Lines: []diff.Line{
					{Op: diff.OpAdded, Text: "// @deprecated use NewClientV2"},
					{Op: diff.OpAdded, Text: "func NewClient() *Client {"},
				},
			}},
		},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if !cl.Breaking {
		t.Error("expected breaking change to be detected")
	}
}

func TestScopeOrderedByTouchedLines(t *testing.T) {
	packages := []resolve.Package{
		{Name: "pkg-a", Root: "packages/a"},
		{Name: "pkg-b", Root: "packages/b"},
	}
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "packages/a/main.go", Kind: diff.KindModified, AddedLines: 30, RemovedLines: 10},
		{Path: "packages/b/util.go", Kind: diff.KindModified, AddedLines: 3, RemovedLines: 2},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, packages))

	if len(cl.Scopes) != 2 {
		t.Fatalf("expected 2 scope candidates, got %v", cl.Scopes)
	}
	if cl.PrimaryScope() != "pkg-a" {
		t.Errorf("most-touched package must come first, got %q", cl.PrimaryScope())
	}
	if cl.Scopes[1] != "pkg-b" {
		t.Errorf("expected pkg-b second, got %q", cl.Scopes[1])
	}
}

func TestScopeCollapsesToMulti(t *testing.T) {
	packages := []resolve.Package{
		{Name: "a", Root: "m/a"}, {Name: "b", Root: "m/b"},
		{Name: "c", Root: "m/c"}, {Name: "d", Root: "m/d"},
	}
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "m/a/x.go", Kind: diff.KindModified, AddedLines: 1},
		{Path: "m/b/x.go", Kind: diff.KindModified, AddedLines: 1},
		{Path: "m/c/x.go", Kind: diff.KindModified, AddedLines: 1},
		{Path: "m/d/x.go", Kind: diff.KindModified, AddedLines: 1},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, packages))

	if len(cl.Scopes) != 1 || cl.Scopes[0] != MultiScope {
		t.Errorf("expected collapse to %q, got %v", MultiScope, cl.Scopes)
	}
}

func TestRootPackageContributesNoScope(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "Makefile", Kind: diff.KindModified, AddedLines: 1},
	}}
	cl := classifier(t).Classify(cs, resolution(cs, nil))
	if len(cl.Scopes) != 0 {
		t.Errorf("root-only change must have no scope candidates, got %v", cl.Scopes)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "internal/a.go", Kind: diff.KindAdded, AddedLines: 10},
		{Path: "internal/b.go", Kind: diff.KindModified, AddedLines: 4, RemovedLines: 1},
	}}
	c := classifier(t)
	res := resolution(cs, nil)
	first := c.Classify(cs, res)
	for i := 0; i < 5; i++ {
		again := c.Classify(cs, res)
		if again.Type != first.Type || again.Confidence != first.Confidence {
			t.Fatalf("classification changed between runs: %+v vs %+v", first, again)
		}
	}
}

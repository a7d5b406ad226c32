// Package diff parses unified git diffs into structured change sets.
package diff

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// Sentinel errors for diff parsing. Callers use errors.Is to distinguish
// a bad diff from a bad environment.
var (
	// ErrMalformed indicates hunk headers that do not parse or ranges
	// that are inconsistent with each other.
	ErrMalformed = errors.New("malformed diff")
	// ErrEncoding indicates file content that is not valid text and not
	// marked binary.
	ErrEncoding = errors.New("invalid text encoding")
)

// ChangeKind categorizes what happened to a file.
type ChangeKind int

const (
	KindModified ChangeKind = iota
	KindAdded
	KindDeleted
	KindRenamed
	KindBinary
)

func (k ChangeKind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindDeleted:
		return "deleted"
	case KindRenamed:
		return "renamed"
	case KindBinary:
		return "binary"
	default:
		return "modified"
	}
}

// LineOp is the edit operation for a single diff line.
type LineOp int

const (
	OpContext LineOp = iota
	OpAdded
	OpRemoved
)

// Line is one line edit inside a hunk.
type Line struct {
	Op   LineOp
	Text string
}

// Hunk is a contiguous block of line edits with its old/new ranges.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Section  string // the context line after the @@ header, if any
	Lines    []Line
}

// Changed returns the number of added plus removed lines in the hunk.
func (h *Hunk) Changed() int {
	n := 0
	for _, l := range h.Lines {
		if l.Op != OpContext {
			n++
		}
	}
	return n
}

// FileChange is a single file in a change set.
type FileChange struct {
	Path         string // repository-relative, POSIX-separated
	OldPath      string // set when Kind == KindRenamed
	Kind         ChangeKind
	Hunks        []Hunk
	AddedLines   int
	RemovedLines int
}

// Name returns the display name for the file.
func (f *FileChange) Name() string {
	if f.Kind == KindRenamed {
		return fmt.Sprintf("%s -> %s", f.OldPath, f.Path)
	}
	return f.Path
}

// TotalChanged returns the number of added plus removed lines.
func (f *FileChange) TotalChanged() int {
	return f.AddedLines + f.RemovedLines
}

// ChangeSet holds the parsed diff for all files.
type ChangeSet struct {
	Files []FileChange
	Raw   string // the raw unified diff text
}

// Stats returns aggregate statistics.
func (cs *ChangeSet) Stats() (files, added, removed int) {
	files = len(cs.Files)
	for i := range cs.Files {
		added += cs.Files[i].AddedLines
		removed += cs.Files[i].RemovedLines
	}
	return
}

// Paths returns the sorted new-side paths of all files.
func (cs *ChangeSet) Paths() []string {
	paths := make([]string, 0, len(cs.Files))
	for i := range cs.Files {
		paths = append(paths, cs.Files[i].Path)
	}
	sort.Strings(paths)
	return paths
}

// Parse reads a unified diff string and returns a ChangeSet.
func Parse(raw string) (*ChangeSet, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	cs := &ChangeSet{Raw: raw}
	seen := make(map[string]bool)

	for _, f := range parsed {
		fc := FileChange{Kind: kindOf(f)}

		fc.Path = f.NewName
		if fc.Path == "" {
			fc.Path = f.OldName
		}
		if fc.Kind == KindRenamed {
			fc.OldPath = f.OldName
		}

		if strings.Contains(fc.Path, "\\") {
			return nil, fmt.Errorf("%w: non-POSIX path %q", ErrMalformed, fc.Path)
		}
		if seen[fc.Path] {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrMalformed, fc.Path)
		}
		seen[fc.Path] = true

		if fc.Kind != KindBinary {
			for _, frag := range f.TextFragments {
				h, err := convertFragment(frag)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", fc.Path, err)
				}
				fc.Hunks = append(fc.Hunks, h)
				for _, line := range h.Lines {
					switch line.Op {
					case OpAdded:
						fc.AddedLines++
					case OpRemoved:
						fc.RemovedLines++
					}
				}
			}
			if err := checkHunkOrder(fc.Hunks); err != nil {
				return nil, fmt.Errorf("%s: %w", fc.Path, err)
			}
		}

		cs.Files = append(cs.Files, fc)
	}

	return cs, nil
}

func kindOf(f *gitdiff.File) ChangeKind {
	switch {
	case f.IsBinary:
		return KindBinary
	case f.IsNew:
		return KindAdded
	case f.IsDelete:
		return KindDeleted
	case f.IsRename:
		return KindRenamed
	default:
		return KindModified
	}
}

func convertFragment(frag *gitdiff.TextFragment) (Hunk, error) {
	h := Hunk{
		OldStart: int(frag.OldPosition),
		OldLines: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewLines: int(frag.NewLines),
		Section:  strings.TrimSpace(frag.Comment),
	}
	if h.OldStart < 0 || h.NewStart < 0 || h.OldLines < 0 || h.NewLines < 0 {
		return h, fmt.Errorf("%w: negative hunk range", ErrMalformed)
	}

	for _, line := range frag.Lines {
		var op LineOp
		switch line.Op {
		case gitdiff.OpAdd:
			op = OpAdded
		case gitdiff.OpDelete:
			op = OpRemoved
		default:
			op = OpContext
		}
		text := strings.TrimSuffix(line.Line, "\n")
		if !utf8.ValidString(text) {
			return h, ErrEncoding
		}
		h.Lines = append(h.Lines, Line{Op: op, Text: text})
	}

	return h, nil
}

// checkHunkOrder verifies hunks are non-overlapping and monotonically
// increasing on both sides of the file.
func checkHunkOrder(hunks []Hunk) error {
	prevOld, prevNew := 0, 0
	for _, h := range hunks {
		if h.OldStart < prevOld || h.NewStart < prevNew {
			return fmt.Errorf("%w: overlapping hunks", ErrMalformed)
		}
		prevOld = h.OldStart + h.OldLines
		prevNew = h.NewStart + h.NewLines
	}
	return nil
}

// AddedLines walks every added line in the change set in file order,
// calling fn with the file path and the line's position in the new file.
// Binary files are skipped.
func (cs *ChangeSet) AddedLines(fn func(path string, lineNum int, text string)) {
	for i := range cs.Files {
		f := &cs.Files[i]
		if f.Kind == KindBinary {
			continue
		}
		for _, h := range f.Hunks {
			lineNum := h.NewStart
			for _, line := range h.Lines {
				if line.Op == OpAdded {
					fn(f.Path, lineNum, line.Text)
				}
				if line.Op != OpRemoved {
					lineNum++
				}
			}
		}
	}
}

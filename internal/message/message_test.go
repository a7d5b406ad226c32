package message

import (
	"errors"
	"strings"
	"testing"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
)

func TestParse(t *testing.T) {
	msg, err := Parse("feat(auth): add refresh token rotation")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Type != "feat" || msg.Scope != "auth" {
		t.Errorf("got type=%q scope=%q", msg.Type, msg.Scope)
	}
	if msg.Subject != "add refresh token rotation" {
		t.Errorf("got subject %q", msg.Subject)
	}
	if msg.Breaking {
		t.Error("breaking must be false without a marker")
	}
}

func TestParseBreakingBang(t *testing.T) {
	msg, err := Parse("refactor(api)!: rename client constructor")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !msg.Breaking {
		t.Error("expected breaking from ! marker")
	}
}

func TestParseBodyAndFooter(t *testing.T) {
	raw := strings.Join([]string{
		"fix(store): handle nil iterator on empty bucket",
		"",
		"The iterator returned by Scan was dereferenced before the",
		"empty-bucket check.",
		"",
		"Fixes #142",
	}, "\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(msg.Body, "empty-bucket check") {
		t.Errorf("body lost: %q", msg.Body)
	}
	if msg.Footer != "Fixes #142" {
		t.Errorf("footer = %q, want 'Fixes #142'", msg.Footer)
	}
}

func TestParseBreakingFooter(t *testing.T) {
	raw := "feat(core): drop legacy config keys\n\nBREAKING CHANGE: v1 keys are no longer read"
	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !msg.Breaking {
		t.Error("BREAKING CHANGE footer must set Breaking")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	for _, raw := range []string{
		"no conventional header here",
		"FEAT: uppercase type",
		"feat add thing without colon",
	} {
		if _, err := Parse(raw); !errors.Is(err, ErrFormat) {
			t.Errorf("Parse(%q): expected ErrFormat, got %v", raw, err)
		}
	}
}

func TestHeaderAndFormat(t *testing.T) {
	msg := &Message{
		Type: "feat", Scope: "auth", Breaking: true,
		Subject: "rotate refresh tokens",
		Body:    "Old tokens are revoked on use.",
	}
	if got := msg.Header(); got != "feat(auth)!: rotate refresh tokens" {
		t.Errorf("Header() = %q", got)
	}

	reparsed, err := Parse(msg.Format())
	if err != nil {
		t.Fatalf("formatted message must reparse: %v", err)
	}
	if reparsed.Type != msg.Type || reparsed.Scope != msg.Scope ||
		reparsed.Subject != msg.Subject || !reparsed.Breaking {
		t.Errorf("round trip lost fields: %+v", reparsed)
	}
}

func TestSynthesizeLowConfidence(t *testing.T) {
	cfg := config.Default()
	cl := classify.Classification{Type: "feat", Scopes: []string{"api"}, Confidence: 0.4}
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "api/server.go", Kind: diff.KindAdded, AddedLines: 50},
	}}

	msg := Synthesize(cl, cs, cfg)
	if msg.Type != "feat" || msg.Scope != "api" {
		t.Errorf("got type=%q scope=%q", msg.Type, msg.Scope)
	}
	if msg.Subject != SummaryPlaceholder {
		t.Errorf("low confidence must use the placeholder, got %q", msg.Subject)
	}
}

func TestSynthesizeSmartSubject(t *testing.T) {
	cfg := config.Default()
	cl := classify.Classification{Type: "fix", Scopes: []string{"store"}, Confidence: 0.9}
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{
			Path: "internal/store/bucket.go", Kind: diff.KindModified,
			AddedLines: 3, RemovedLines: 1,
			Hunks: []diff.Hunk{{
				NewStart: 10, NewLines: 6, OldStart: 10, OldLines: 4,
				Section: "func (b *Bucket) Scan(prefix string) Iterator",
				Lines: []diff.Line{
					{Op: diff.OpRemoved, Text: "old"},
					{Op: diff.OpAdded, Text: "new"},
					{Op: diff.OpAdded, Text: "new"},
					{Op: diff.OpAdded, Text: "new"},
				},
			}},
		},
	}}

	msg := Synthesize(cl, cs, cfg)
	if msg.Subject != "update Scan" {
		t.Errorf("expected subject derived from hunk section, got %q", msg.Subject)
	}
}

func TestSynthesizeSmartBody(t *testing.T) {
	cfg := config.Default()
	cl := classify.Classification{Type: "feat", Confidence: 0.95}
	cs := &diff.ChangeSet{Files: []diff.FileChange{
		{Path: "a.go", Kind: diff.KindAdded, AddedLines: 5},
		{Path: "b.go", Kind: diff.KindModified, AddedLines: 2},
		{Path: "c.go", Kind: diff.KindDeleted, RemovedLines: 9},
	}}

	msg := Synthesize(cl, cs, cfg)
	for _, want := range []string{"- add a.go", "- update b.go", "- remove c.go"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestFitSubject(t *testing.T) {
	long := strings.Repeat("implement the thing ", 10)
	got := fitSubject(long, 10, 72)
	if len(got) > 72 {
		t.Errorf("subject not clamped: %d chars", len(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("trailing space after truncation: %q", got)
	}

	if got := fitSubject("tiny", 10, 72); got != SummaryPlaceholder {
		t.Errorf("short subject must fall back to placeholder, got %q", got)
	}
}

func TestSanitizeSubject(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Add new parser.", "add new parser"},
		{"update Scan", "update Scan"},
		{"  Trim me  ", "trim me"},
	}
	for _, tc := range cases {
		if got := sanitizeSubject(tc.in); got != tc.want {
			t.Errorf("sanitizeSubject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSymbolName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"func (s *Server) Close()", "Close"},
		{"func Parse(raw string) (*Message, error)", "Parse"},
		{"def handle_request(self):", "handle_request"},
		{"class TokenStore:", "TokenStore"},
		{"plain heading", "plain heading"},
	}
	for _, tc := range cases {
		if got := symbolName(tc.in); got != tc.want {
			t.Errorf("symbolName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

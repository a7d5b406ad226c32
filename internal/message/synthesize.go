package message

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/commitward/commitward/internal/classify"
	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
)

// SummaryPlaceholder is the subject used when no smart summary can be
// derived; the interactive caller replaces it.
const SummaryPlaceholder = "describe this change"

// Synthesize builds a draft commit message from a classification. The
// subject is derived from the dominant hunk when the classification's
// confidence clears the configured smart threshold, otherwise it is a
// placeholder for the caller to fill in. The draft always satisfies the
// message-shape rules for the same configuration.
func Synthesize(cl classify.Classification, cs *diff.ChangeSet, cfg *config.Config) *Message {
	msg := &Message{
		Type:     cl.Type,
		Breaking: cl.Breaking,
		Subject:  SummaryPlaceholder,
	}

	if scope := cl.PrimaryScope(); scope != "" {
		msg.Scope = scope
	}

	if cl.Confidence >= cfg.Classify.SmartThreshold {
		if subject := smartSubject(cs); subject != "" {
			msg.Subject = subject
		}
		msg.Body = smartBody(cs)
	}

	msg.Subject = fitSubject(msg.Subject, cfg.Rules.MinSubjectLength, cfg.Rules.MaxSubjectLength)
	return msg
}

// smartSubject derives a subject from the most-changed hunk's section
// heading, falling back to the most-changed file's name.
func smartSubject(cs *diff.ChangeSet) string {
	if cs == nil || len(cs.Files) == 0 {
		return ""
	}

	var (
		dominant     *diff.FileChange
		dominantHunk *diff.Hunk
		best         = -1
	)
	for i := range cs.Files {
		f := &cs.Files[i]
		for j := range f.Hunks {
			if c := f.Hunks[j].Changed(); c > best {
				best = c
				dominant = f
				dominantHunk = &f.Hunks[j]
			}
		}
		if f.TotalChanged() > 0 && dominant == nil {
			dominant = f
		}
	}
	if dominant == nil {
		return ""
	}

	verb := verbFor(dominant.Kind)
	if dominantHunk != nil && dominantHunk.Section != "" {
		return sanitizeSubject(fmt.Sprintf("%s %s", verb, symbolName(dominantHunk.Section)))
	}
	return sanitizeSubject(fmt.Sprintf("%s %s", verb, fileStem(dominant.Path)))
}

// smartBody lists the touched files as bullets, capped at five.
func smartBody(cs *diff.ChangeSet) string {
	const maxBullets = 5
	if cs == nil || len(cs.Files) < 2 {
		return ""
	}
	var lines []string
	for i := range cs.Files {
		if i == maxBullets {
			lines = append(lines, fmt.Sprintf("- and %d more files", len(cs.Files)-maxBullets))
			break
		}
		f := &cs.Files[i]
		lines = append(lines, fmt.Sprintf("- %s %s", verbFor(f.Kind), f.Path))
	}
	return strings.Join(lines, "\n")
}

func verbFor(kind diff.ChangeKind) string {
	switch kind {
	case diff.KindAdded:
		return "add"
	case diff.KindDeleted:
		return "remove"
	case diff.KindRenamed:
		return "rename"
	default:
		return "update"
	}
}

// symbolName reduces a hunk section heading like "func (s *Server) Close()"
// to the symbol it names.
func symbolName(section string) string {
	section = strings.TrimSpace(section)
	for _, prefix := range []string{"func ", "def ", "class ", "fn ", "pub fn ", "impl "} {
		if rest, ok := strings.CutPrefix(section, prefix); ok {
			section = rest
			break
		}
	}
	// Drop a leading method receiver, then arguments.
	if rest, ok := strings.CutPrefix(section, "("); ok {
		if i := strings.Index(rest, ")"); i >= 0 {
			section = strings.TrimSpace(rest[i+1:])
		}
	}
	if i := strings.IndexAny(section, "({:"); i > 0 {
		section = section[:i]
	}
	return strings.TrimSpace(section)
}

func fileStem(p string) string {
	base := path.Base(p)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	return stem
}

// sanitizeSubject lowercases the first rune and strips a trailing period
// so drafts satisfy the subject-shape warnings out of the box.
func sanitizeSubject(s string) string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	if unicode.IsUpper(first) {
		s = string(unicode.ToLower(first)) + s[size:]
	}
	return s
}

// fitSubject keeps the subject inside the configured length bounds,
// truncating at a word boundary or falling back to the placeholder.
func fitSubject(s string, min, max int) string {
	if utf8.RuneCountInString(s) > max {
		runes := []rune(s)
		cut := string(runes[:max])
		if i := strings.LastIndex(cut, " "); i > min {
			cut = cut[:i]
		}
		s = strings.TrimSpace(cut)
	}
	if utf8.RuneCountInString(s) < min {
		if utf8.RuneCountInString(SummaryPlaceholder) <= max {
			return SummaryPlaceholder
		}
	}
	return s
}

// Package secrets scans added diff lines for credential-shaped patterns
// and high-entropy tokens.
package secrets

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
)

// EntropyPattern is the pattern identifier used for entropy findings.
const EntropyPattern = "entropy"

// Finding is a located, redacted secret-detection match.
type Finding struct {
	Path       string
	Line       int
	Pattern    string // pattern identifier, or "entropy"
	Excerpt    string // redacted, never the raw secret
	Confidence float64
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s (%s)", f.Path, f.Line, f.Pattern, f.Excerpt)
}

type pattern struct {
	id         string
	re         *regexp.Regexp
	confidence float64
}

// Built-in credential shapes. Custom patterns from configuration are
// appended after these.
var builtinPatterns = []pattern{
	{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`), 0.95},
	{"aws-secret-key", regexp.MustCompile(`(?i)aws(.{0,20})?['"][0-9a-zA-Z/+]{40}['"]`), 0.85},
	{"github-token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`), 0.95},
	{"slack-token", regexp.MustCompile(`xox[baprs]-[0-9]{10,}-[0-9A-Za-z-]{10,}`), 0.9},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_=-]+\.eyJ[A-Za-z0-9_=-]+\.?[A-Za-z0-9_.+/=-]*`), 0.8},
	{"private-key", regexp.MustCompile(`-----BEGIN (RSA|DSA|EC|OPENSSH|PGP) PRIVATE KEY-----`), 1.0},
	{"generic-api-key", regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[a-zA-Z0-9]{16,}['"]?`), 0.7},
	{"generic-secret", regexp.MustCompile(`(?i)(secret|password|passwd|pwd)\s*[:=]\s*['"][^'"]{8,}['"]`), 0.6},
}

// Scanner detects secrets in added line content. It is read-only: the diff
// is never modified, only the finding's excerpt is redacted.
type Scanner struct {
	enabled  bool
	patterns []pattern
	entropy  config.EntropyConfig
}

// New builds a scanner from configuration. Custom pattern regexes were
// validated at config load; ones that still fail to compile are skipped.
func New(cfg *config.Config) *Scanner {
	s := &Scanner{
		enabled:  cfg.Security.Enabled,
		patterns: builtinPatterns,
		entropy:  cfg.Security.Entropy,
	}
	for _, custom := range cfg.Security.Patterns {
		re, err := regexp.Compile(custom.Pattern)
		if err != nil {
			continue
		}
		s.patterns = append(s.patterns, pattern{id: custom.Name, re: re, confidence: 0.8})
	}
	return s
}

// Scan returns findings over every added line, deduplicated by
// (path, line, pattern) and ordered by position in the change set.
// Removed and context lines are not scanned; only new content can
// introduce a new leak.
func (s *Scanner) Scan(cs *diff.ChangeSet) []Finding {
	if !s.enabled {
		return nil
	}

	var findings []Finding
	seen := make(map[string]bool)

	add := func(f Finding) {
		key := fmt.Sprintf("%s:%d:%s", f.Path, f.Line, f.Pattern)
		if !seen[key] {
			seen[key] = true
			findings = append(findings, f)
		}
	}

	cs.AddedLines(func(path string, lineNum int, text string) {
		for _, p := range s.patterns {
			if match := p.re.FindString(text); match != "" {
				add(Finding{
					Path:       path,
					Line:       lineNum,
					Pattern:    p.id,
					Excerpt:    Redact(match),
					Confidence: p.confidence,
				})
			}
		}
		if s.entropy.Enabled {
			for _, tok := range tokenRuns(text, s.entropy.MinTokenLength) {
				if e := shannonEntropy(tok); e >= s.entropy.Threshold {
					add(Finding{
						Path:       path,
						Line:       lineNum,
						Pattern:    EntropyPattern,
						Excerpt:    Redact(tok),
						Confidence: entropyConfidence(e),
					})
				}
			}
		}
	})

	return findings
}

// Redact keeps the first and last four characters of a match and masks the
// middle, so findings can be reported without re-leaking the secret.
func Redact(s string) string {
	const keep = 4
	if len(s) <= keep*2 {
		return strings.Repeat("*", len(s))
	}
	masked := len(s) - keep*2
	if masked > 12 {
		masked = 12
	}
	return s[:keep] + strings.Repeat("*", masked) + s[len(s)-keep:]
}

// tokenRuns splits a line into contiguous runs of token characters at
// least minLen long. The character class matches base64/hex-style secret
// material.
func tokenRuns(text string, minLen int) []string {
	isTokenChar := func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return true
		case r == '+' || r == '/' || r == '=' || r == '_' || r == '-':
			return true
		}
		return false
	}

	var runs []string
	start := -1
	for i, r := range text {
		if isTokenChar(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			runs = append(runs, text[start:i])
		}
		start = -1
	}
	if start >= 0 && len(text)-start >= minLen {
		runs = append(runs, text[start:])
	}
	return runs
}

// shannonEntropy returns bits of entropy per character.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	entropy := 0.0
	for _, n := range freq {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func entropyConfidence(e float64) float64 {
	c := e / 6.0
	if c > 1 {
		c = 1
	}
	return c
}

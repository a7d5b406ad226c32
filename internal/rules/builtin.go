package rules

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/commitward/commitward/internal/config"
)

// Common non-imperative first words, from conventional-commit linting
// practice.
var nonImperative = map[string]bool{
	"added": true, "adding": true, "adds": true,
	"fixed": true, "fixing": true, "fixes": true,
	"updated": true, "updating": true, "updates": true,
	"removed": true, "removing": true, "removes": true,
	"changed": true, "changing": true, "changes": true,
	"implemented": true, "implementing": true, "implements": true,
	"created": true, "creating": true, "creates": true,
}

// builtinRules returns the built-in rule set in configured order.
func builtinRules(cfg *config.Config) []Rule {
	rules := []Rule{
		subjectTooLong(cfg.Rules.MaxSubjectLength),
		subjectTooShort(cfg.Rules.MinSubjectLength),
		typeNotAllowed(cfg.Rules.AllowedTypes),
		typeForbidden(cfg.Rules.ForbiddenTypes),
		scopeRequired(cfg.Rules.RequireScope),
		bodyRequired(cfg.Rules.RequireBody),
		subjectCase(),
		subjectTrailingPeriod(),
		subjectImperative(),
		secretBlock(cfg.Security.BlockOnSecret),
		scopeAmbiguous(),
	}
	rules = append(rules, pathRules(cfg.Rules.Paths)...)
	rules = append(rules, branchRules(cfg.Rules.Branches)...)
	return rules
}

func subjectTooLong(max int) Rule {
	return Rule{
		ID:           "subject-too-long",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if in.Message == nil {
				return nil
			}
			n := utf8.RuneCountInString(in.Message.Subject)
			if n <= max {
				return nil
			}
			return []Violation{{
				Rule:     "subject-too-long",
				Severity: SeverityError,
				Message:  fmt.Sprintf("subject is %d characters (max %d)", n, max),
				Line:     1,
			}}
		},
	}
}

func subjectTooShort(min int) Rule {
	return Rule{
		ID:           "subject-too-short",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if in.Message == nil || min <= 0 {
				return nil
			}
			n := utf8.RuneCountInString(in.Message.Subject)
			if n >= min {
				return nil
			}
			return []Violation{{
				Rule:     "subject-too-short",
				Severity: SeverityError,
				Message:  fmt.Sprintf("subject is %d characters (min %d)", n, min),
				Line:     1,
			}}
		},
	}
}

func typeNotAllowed(allowed []string) Rule {
	return Rule{
		ID:           "type-not-allowed",
		MessageShape: true,
		Check: func(in Input) []Violation {
			typ := messageType(in)
			if typ == "" || len(allowed) == 0 || contains(allowed, typ) {
				return nil
			}
			return []Violation{{
				Rule:     "type-not-allowed",
				Severity: SeverityError,
				Message:  fmt.Sprintf("type %q is not allowed (use one of: %s)", typ, strings.Join(allowed, ", ")),
				Line:     1,
			}}
		},
	}
}

func typeForbidden(forbidden []string) Rule {
	return Rule{
		ID:           "type-forbidden",
		MessageShape: true,
		Check: func(in Input) []Violation {
			typ := messageType(in)
			if typ == "" || !contains(forbidden, typ) {
				return nil
			}
			return []Violation{{
				Rule:     "type-forbidden",
				Severity: SeverityError,
				Message:  fmt.Sprintf("type %q is forbidden", typ),
				Line:     1,
			}}
		},
	}
}

func scopeRequired(required bool) Rule {
	return Rule{
		ID:           "scope-required",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if !required {
				return nil
			}
			scope := in.Classification.PrimaryScope()
			if in.Message != nil {
				scope = in.Message.Scope
			}
			if scope != "" {
				return nil
			}
			return []Violation{{
				Rule:     "scope-required",
				Severity: SeverityError,
				Message:  "scope is required but none was provided or resolved",
				Line:     1,
			}}
		},
	}
}

func bodyRequired(required bool) Rule {
	return Rule{
		ID:           "body-required",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if !required || in.Message == nil || in.Message.Body != "" {
				return nil
			}
			return []Violation{{
				Rule:     "body-required",
				Severity: SeverityError,
				Message:  "body is required but not provided",
			}}
		},
	}
}

func subjectCase() Rule {
	return Rule{
		ID:           "subject-case",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if in.Message == nil {
				return nil
			}
			first, _ := utf8.DecodeRuneInString(in.Message.Subject)
			if first == utf8.RuneError || !unicode.IsUpper(first) {
				return nil
			}
			return []Violation{{
				Rule:     "subject-case",
				Severity: SeverityWarning,
				Message:  "subject should start with lowercase",
				Line:     1,
			}}
		},
	}
}

func subjectTrailingPeriod() Rule {
	return Rule{
		ID:           "subject-trailing-period",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if in.Message == nil || !strings.HasSuffix(in.Message.Subject, ".") {
				return nil
			}
			return []Violation{{
				Rule:     "subject-trailing-period",
				Severity: SeverityWarning,
				Message:  "subject should not end with a period",
				Line:     1,
			}}
		},
	}
}

func subjectImperative() Rule {
	return Rule{
		ID:           "subject-imperative",
		MessageShape: true,
		Check: func(in Input) []Violation {
			if in.Message == nil {
				return nil
			}
			fields := strings.Fields(in.Message.Subject)
			if len(fields) == 0 {
				return nil
			}
			first := strings.ToLower(fields[0])
			if !nonImperative[first] {
				return nil
			}
			return []Violation{{
				Rule:     "subject-imperative",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("subject should use imperative mood (found %q)", fields[0]),
				Line:     1,
			}}
		},
	}
}

// secretBlock turns scanner findings into violations: errors when
// block_on_secret is configured, warnings otherwise. Findings are never
// silently dropped.
func secretBlock(block bool) Rule {
	severity := SeverityWarning
	if block {
		severity = SeverityError
	}
	return Rule{
		ID: "secret-block",
		Check: func(in Input) []Violation {
			var out []Violation
			for _, f := range in.Findings {
				out = append(out, Violation{
					Rule:     "secret-block",
					Severity: severity,
					Message:  fmt.Sprintf("possible secret (%s): %s", f.Pattern, f.Excerpt),
					Path:     f.Path,
					Line:     f.Line,
				})
			}
			return out
		},
	}
}

// scopeAmbiguous surfaces package-resolution ties as warnings so a single
// unresolvable path never blocks an otherwise-valid commit.
func scopeAmbiguous() Rule {
	return Rule{
		ID: "scope-ambiguous",
		Check: func(in Input) []Violation {
			var out []Violation
			for _, amb := range in.Ambiguities {
				out = append(out, Violation{
					Rule:     "scope-ambiguous",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("path matches competing package roots %s; using root scope", strings.Join(amb.Roots, ", ")),
					Path:     amb.Path,
				})
			}
			return out
		},
	}
}

// pathRules builds one rule per configured path glob, sorted by glob for
// deterministic order.
func pathRules(paths map[string]config.PathRule) []Rule {
	globs := make([]string, 0, len(paths))
	for g := range paths {
		globs = append(globs, g)
	}
	sort.Strings(globs)

	var out []Rule
	for _, glob := range globs {
		pr := paths[glob]
		id := "path:" + glob
		out = append(out, Rule{
			ID:       id,
			PathGlob: glob,
			Check: func(in Input) []Violation {
				var viols []Violation
				typ := messageType(in)
				if pr.Type != "" && typ != "" && typ != pr.Type {
					viols = append(viols, Violation{
						Rule:     id,
						Severity: SeverityError,
						Message:  fmt.Sprintf("changes matching %q require type %q", glob, pr.Type),
					})
				}
				scope := messageScope(in)
				if pr.Scope != "" && scope != "" && scope != pr.Scope {
					viols = append(viols, Violation{
						Rule:     id,
						Severity: SeverityError,
						Message:  fmt.Sprintf("changes matching %q require scope %q", glob, pr.Scope),
					})
				}
				if pr.RequireScope != nil && *pr.RequireScope && scope == "" {
					viols = append(viols, Violation{
						Rule:     id,
						Severity: SeverityError,
						Message:  fmt.Sprintf("changes matching %q require a scope", glob),
					})
				}
				return viols
			},
		})
	}
	return out
}

// branchRules builds one rule per configured branch glob.
func branchRules(branches map[string]config.BranchRule) []Rule {
	globs := make([]string, 0, len(branches))
	for g := range branches {
		globs = append(globs, g)
	}
	sort.Strings(globs)

	var out []Rule
	for _, glob := range globs {
		br := branches[glob]
		id := "branch:" + glob
		out = append(out, Rule{
			ID:         id,
			BranchGlob: glob,
			Check: func(in Input) []Violation {
				var viols []Violation
				typ := messageType(in)
				if len(br.AllowedTypes) > 0 && typ != "" && !contains(br.AllowedTypes, typ) {
					viols = append(viols, Violation{
						Rule:     id,
						Severity: SeverityError,
						Message:  fmt.Sprintf("branch %q allows types: %s", in.Branch, strings.Join(br.AllowedTypes, ", ")),
					})
				}
				if br.RequireScope != nil && *br.RequireScope && messageScope(in) == "" {
					viols = append(viols, Violation{
						Rule:     id,
						Severity: SeverityError,
						Message:  fmt.Sprintf("branch %q requires a scope", in.Branch),
					})
				}
				return viols
			},
		})
	}
	return out
}

// messageType prefers the explicit message over the inferred classification.
func messageType(in Input) string {
	if in.Message != nil {
		return in.Message.Type
	}
	return in.Classification.Type
}

func messageScope(in Input) string {
	if in.Message != nil {
		return in.Message.Scope
	}
	return in.Classification.PrimaryScope()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package config loads the declarative rule configuration document.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrConfig indicates a malformed configuration value. It is fatal to the
// whole invocation, never downgraded to a per-rule problem.
var ErrConfig = errors.New("invalid configuration")

// Config is the full configuration document. Unknown keys are ignored;
// missing keys take the documented defaults.
type Config struct {
	Rules    RulesConfig    `yaml:"rules"`
	Monorepo MonorepoConfig `yaml:"monorepo"`
	Security SecurityConfig `yaml:"security"`
	Classify ClassifyConfig `yaml:"classify"`
}

// RulesConfig controls the rule engine's built-in rules.
type RulesConfig struct {
	MaxSubjectLength int      `yaml:"max_subject_length"`
	MinSubjectLength int      `yaml:"min_subject_length"`
	RequireScope     bool     `yaml:"require_scope"`
	RequireBody      bool     `yaml:"require_body"`
	AllowedTypes     []string `yaml:"allowed_types"`
	ForbiddenTypes   []string `yaml:"forbidden_types"`

	// Paths scopes extra constraints to changes matching a glob.
	Paths map[string]PathRule `yaml:"paths"`
	// Branches scopes extra constraints to branch names matching a glob.
	Branches map[string]BranchRule `yaml:"branches"`
}

// PathRule applies only when at least one changed path matches its glob.
type PathRule struct {
	Type         string `yaml:"type"`  // required commit type, "" for any
	Scope        string `yaml:"scope"` // required scope, "" for any
	RequireScope *bool  `yaml:"require_scope"`
}

// BranchRule applies only when the current branch matches its glob.
type BranchRule struct {
	AllowedTypes []string `yaml:"allowed_types"`
	RequireScope *bool    `yaml:"require_scope"`
}

// MonorepoConfig controls package detection and scope resolution.
type MonorepoConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Markers   []string        `yaml:"package_markers"`
	RootScope string          `yaml:"root_scope"`
	MaxScopes int             `yaml:"max_scopes"`
	Packages  []PackageConfig `yaml:"packages"`
}

// PackageConfig is an explicitly configured package root.
type PackageConfig struct {
	Path  string `yaml:"path"`
	Name  string `yaml:"name"`
	Scope string `yaml:"scope"`
}

// SecurityConfig controls the secret scanner.
type SecurityConfig struct {
	Enabled       bool            `yaml:"enabled"`
	BlockOnSecret bool            `yaml:"block_on_secret"`
	Patterns      []SecretPattern `yaml:"patterns"`
	Entropy       EntropyConfig   `yaml:"entropy"`
}

// SecretPattern is a custom credential-shaped regular expression.
type SecretPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// EntropyConfig bounds the high-entropy token detector.
type EntropyConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MinTokenLength int     `yaml:"min_token_length"`
	Threshold      float64 `yaml:"threshold"` // bits per character
}

// ClassifyConfig controls type/scope inference.
type ClassifyConfig struct {
	TestPatterns    []string `yaml:"test_patterns"`
	DocsPatterns    []string `yaml:"docs_patterns"`
	BreakingMarkers []string `yaml:"breaking_markers"`
	SmartThreshold  float64  `yaml:"smart_threshold"`
	SmallHunkLines  int      `yaml:"small_hunk_lines"`
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Rules: RulesConfig{
			MaxSubjectLength: 72,
			MinSubjectLength: 10,
			RequireScope:     false,
			AllowedTypes: []string{
				"feat", "fix", "docs", "style", "refactor", "perf",
				"test", "chore", "revert", "build", "ci",
			},
		},
		Monorepo: MonorepoConfig{
			Enabled:   true,
			Markers:   []string{"go.mod", "package.json", "Cargo.toml"},
			RootScope: "root",
			MaxScopes: 3,
		},
		Security: SecurityConfig{
			Enabled:       true,
			BlockOnSecret: true,
			Entropy: EntropyConfig{
				Enabled:        true,
				MinTokenLength: 20,
				Threshold:      4.0,
			},
		},
		Classify: ClassifyConfig{
			TestPatterns: []string{
				"**/*_test.go", "**/*.test.{js,ts}", "**/*.spec.{js,ts}",
				"test/**", "tests/**", "**/testdata/**",
			},
			DocsPatterns: []string{
				"**/*.md", "**/*.rst", "docs/**", "doc/**",
			},
			BreakingMarkers: []string{"BREAKING CHANGE", "@deprecated", "#[deprecated"},
			SmartThreshold:  0.8,
			SmallHunkLines:  12,
		},
	}
}

// Parse decodes a YAML configuration document over the defaults and
// validates it. A malformed document or value returns ErrConfig.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Validate checks every value the pipeline depends on. The first bad value
// fails the whole configuration.
func (c *Config) Validate() error {
	if c.Rules.MaxSubjectLength <= 0 {
		return fmt.Errorf("%w: max_subject_length must be positive", ErrConfig)
	}
	if c.Rules.MinSubjectLength < 0 {
		return fmt.Errorf("%w: min_subject_length must not be negative", ErrConfig)
	}
	if c.Rules.MinSubjectLength > c.Rules.MaxSubjectLength {
		return fmt.Errorf("%w: min_subject_length exceeds max_subject_length", ErrConfig)
	}
	if len(c.Rules.AllowedTypes) == 0 {
		return fmt.Errorf("%w: allowed_types must not be empty", ErrConfig)
	}
	for glob := range c.Rules.Paths {
		if !doublestar.ValidatePattern(glob) {
			return fmt.Errorf("%w: bad path glob %q", ErrConfig, glob)
		}
	}
	for glob := range c.Rules.Branches {
		if !doublestar.ValidatePattern(glob) {
			return fmt.Errorf("%w: bad branch glob %q", ErrConfig, glob)
		}
	}
	if c.Monorepo.MaxScopes <= 0 {
		return fmt.Errorf("%w: max_scopes must be positive", ErrConfig)
	}
	if c.Monorepo.RootScope == "" {
		return fmt.Errorf("%w: root_scope must not be empty", ErrConfig)
	}
	for _, p := range c.Security.Patterns {
		if p.Name == "" {
			return fmt.Errorf("%w: secret pattern without a name", ErrConfig)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("%w: secret pattern %q: %v", ErrConfig, p.Name, err)
		}
	}
	if c.Security.Entropy.MinTokenLength <= 0 {
		return fmt.Errorf("%w: entropy min_token_length must be positive", ErrConfig)
	}
	if c.Security.Entropy.Threshold <= 0 || c.Security.Entropy.Threshold > 8 {
		return fmt.Errorf("%w: entropy threshold must be in (0, 8]", ErrConfig)
	}
	for _, pats := range [][]string{c.Classify.TestPatterns, c.Classify.DocsPatterns} {
		for _, g := range pats {
			if !doublestar.ValidatePattern(g) {
				return fmt.Errorf("%w: bad classify glob %q", ErrConfig, g)
			}
		}
	}
	if c.Classify.SmartThreshold < 0 || c.Classify.SmartThreshold > 1 {
		return fmt.Errorf("%w: smart_threshold must be in [0, 1]", ErrConfig)
	}
	return nil
}

// TypeAllowed reports whether a commit type is on the allow-list.
func (c *Config) TypeAllowed(t string) bool {
	for _, a := range c.Rules.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

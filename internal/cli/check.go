package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitward/commitward/internal/config"
	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/pipeline"
	"github.com/commitward/commitward/internal/resolve"
	"github.com/commitward/commitward/internal/rules"
)

var checkCmd = &cobra.Command{
	Use:   "check [commit-range]",
	Short: "Validate a commit or range against the rule set (non-interactive)",
	Long: `Run the full analysis pipeline and report every violation.
With no arguments, checks the staged diff; pass a commit range like
main..HEAD to check each commit's stored message against its own diff,
or "-" to read a diff from stdin.

Exit codes:
  0 — pass
  1 — at least one error-severity violation
  2 — malformed diff or configuration`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringP("message", "m", "", "commit message to validate")
	checkCmd.Flags().StringP("format", "f", "text", "output format: text, json, markdown")
	checkCmd.Flags().IntP("jobs", "j", 4, "concurrent workers for range checks")
	checkCmd.Flags().IntP("context", "C", 3, "lines of context around changes")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	format, _ := cmd.Flags().GetString("format")
	contextLines, _ := cmd.Flags().GetInt("context")

	p, branch := buildPipeline(cfg)

	if len(args) == 1 && args[0] != "-" && strings.Contains(args[0], "..") {
		jobs, _ := cmd.Flags().GetInt("jobs")
		return checkRange(p, args[0], branch, contextLines, jobs, format)
	}

	raw, err := getDiff(args, contextLines)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		fmt.Println("No changes to check.")
		return nil
	}

	msgText, _ := cmd.Flags().GetString("message")

	result, err := p.Run(raw, msgText, branch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitBadInput)
	}

	switch format {
	case "json":
		outputJSON(os.Stdout, result)
	case "markdown":
		outputMarkdown(os.Stdout, result)
	default:
		outputText(os.Stdout, result)
	}

	os.Exit(exitCode(&result.Verdict))
	return nil
}

// checkRange validates every commit in the range concurrently, each against
// its own stored message and diff, reporting in commit order.
func checkRange(p *pipeline.Pipeline, commitRange, branch string, contextLines, jobs int, format string) error {
	repoDir, err := gitRepoRoot()
	if err != nil {
		return fmt.Errorf("not in a git repository: %w", err)
	}

	shas, err := diff.GitRevList(repoDir, commitRange)
	if err != nil {
		return err
	}
	if len(shas) == 0 {
		fmt.Println("No commits in range.")
		return nil
	}

	units := make([]pipeline.Unit, 0, len(shas))
	for _, sha := range shas {
		raw, err := diff.GitDiffCommit(repoDir, sha, contextLines)
		if err != nil {
			return err
		}
		msg, err := diff.GitCommitMessage(repoDir, sha)
		if err != nil {
			return err
		}
		units = append(units, pipeline.Unit{ID: sha, Diff: raw, Message: msg, Branch: branch})
	}

	outcomes := pipeline.CheckAll(p, units, jobs)

	code := ExitOK
	for _, o := range outcomes {
		short := o.ID
		if len(short) > 7 {
			short = short[:7]
		}
		if o.Err != nil {
			fmt.Printf("%s  %s\n", short, styleError.Render("error: "+o.Err.Error()))
			code = ExitBadInput
			continue
		}
		errs, warns := o.Result.Verdict.Counts()
		if errs == 0 && warns == 0 {
			fmt.Printf("%s  %s\n", short, stylePass.Render("pass"))
			continue
		}
		fmt.Printf("%s  %d error(s), %d warning(s)\n", short, errs, warns)
		for _, v := range o.Result.Verdict.Violations {
			fmt.Printf("    %s\n", renderViolation(v))
		}
		if errs > 0 && code == ExitOK {
			code = ExitFail
		}
	}

	os.Exit(code)
	return nil
}

func exitCode(v *rules.Verdict) int {
	if v.Pass() {
		return ExitOK
	}
	return ExitFail
}

func renderViolation(v rules.Violation) string {
	sev := styleWarning.Render("warning")
	if v.Severity == rules.SeverityError {
		sev = styleError.Render("error")
	}
	loc := ""
	if v.Path != "" {
		loc = " " + v.Path
		if v.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, v.Line)
		}
	}
	return fmt.Sprintf("%s %s%s: %s", sev, styleDim.Render(v.Rule), loc, v.Message)
}

func outputText(w *os.File, result *pipeline.Result) {
	nFiles, added, removed := result.ChangeSet.Stats()
	fmt.Fprintf(w, "%d file(s) changed, +%d -%d\n", nFiles, added, removed)
	fmt.Fprintf(w, "Classified as %s", result.Classification.Type)
	if scope := result.Classification.PrimaryScope(); scope != "" {
		fmt.Fprintf(w, "(%s)", scope)
	}
	fmt.Fprintf(w, " with confidence %.2f\n\n", result.Classification.Confidence)

	if result.Draft != nil {
		fmt.Fprintf(w, "Suggested: %s\n\n", result.Draft.Header())
	}

	if len(result.Verdict.Violations) == 0 {
		fmt.Fprintln(w, stylePass.Render("No violations."))
		return
	}
	for _, v := range result.Verdict.Violations {
		fmt.Fprintf(w, "  %s\n", renderViolation(v))
	}
	errs, warns := result.Verdict.Counts()
	fmt.Fprintf(w, "\n%d error(s), %d warning(s)\n", errs, warns)
}

type violationJSON struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Line     int    `json:"line,omitempty"`
}

type checkJSON struct {
	Pass           bool            `json:"pass"`
	Type           string          `json:"type"`
	Scope          string          `json:"scope,omitempty"`
	Breaking       bool            `json:"breaking"`
	Confidence     float64         `json:"confidence"`
	Draft          string          `json:"draft,omitempty"`
	SecretFindings int             `json:"secret_findings"`
	Violations     []violationJSON `json:"violations"`
}

func outputJSON(w *os.File, result *pipeline.Result) {
	out := checkJSON{
		Pass:           result.Verdict.Pass(),
		Type:           result.Classification.Type,
		Scope:          result.Classification.PrimaryScope(),
		Breaking:       result.Classification.Breaking,
		Confidence:     result.Classification.Confidence,
		SecretFindings: len(result.Findings),
	}
	if result.Draft != nil {
		out.Draft = result.Draft.Format()
	}
	for _, v := range result.Verdict.Violations {
		out.Violations = append(out.Violations, violationJSON{
			Rule:     v.Rule,
			Severity: v.Severity.String(),
			Message:  v.Message,
			Path:     v.Path,
			Line:     v.Line,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func outputMarkdown(w *os.File, result *pipeline.Result) {
	nFiles, added, removed := result.ChangeSet.Stats()
	fmt.Fprintf(w, "## Commit Check\n\n")
	fmt.Fprintf(w, "**%d file(s)** changed, **+%d** **-%d** | type `%s` | confidence %.2f\n\n",
		nFiles, added, removed, result.Classification.Type, result.Classification.Confidence)

	if len(result.Verdict.Violations) == 0 {
		fmt.Fprintln(w, "No violations.")
		return
	}
	fmt.Fprintln(w, "| Severity | Rule | Location | Message |")
	fmt.Fprintln(w, "|----------|------|----------|---------|")
	for _, v := range result.Verdict.Violations {
		loc := v.Path
		if v.Line > 0 && loc != "" {
			loc = fmt.Sprintf("%s:%d", loc, v.Line)
		}
		fmt.Fprintf(w, "| %s | %s | `%s` | %s |\n", v.Severity, v.Rule, loc, v.Message)
	}
}

// getDiff reads the diff from stdin when "-" is passed, otherwise from the
// staged changes of the enclosing repository.
func getDiff(args []string, contextLines int) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	repoDir, err := gitRepoRoot()
	if err != nil {
		return "", fmt.Errorf("not in a git repository (or git not installed): %w", err)
	}

	if len(args) == 1 {
		return diff.GitDiffRange(repoDir, args[0], contextLines)
	}
	return diff.GitDiffStaged(repoDir, contextLines)
}

func gitRepoRoot() (string, error) {
	return diff.GitRepoRoot()
}

// buildPipeline detects packages and the current branch, then wires the
// pipeline. Outside a repository both default to empty.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, string) {
	var packages []resolve.Package
	branch := ""
	if repoDir, err := gitRepoRoot(); err == nil {
		packages = resolve.Detect(repoDir, cfg.Monorepo)
		branch, _ = diff.GitBranch(repoDir)
	}
	return pipeline.New(cfg, packages, nil), branch
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charmbracelet/lipgloss"

	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/rules"
)

var previewCmd = &cobra.Command{
	Use:   "preview [commit-range]",
	Short: "Render the diff with syntax highlighting and inline violations",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().IntP("context", "C", 3, "lines of context around changes")
	previewCmd.Flags().String("style", "dracula", "syntax highlighting style")
	previewCmd.Flags().Bool("no-color", false, "disable syntax highlighting")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	contextLines, _ := cmd.Flags().GetInt("context")

	raw, err := getDiff(args, contextLines)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		fmt.Println("No changes to preview.")
		return nil
	}

	p, branch := buildPipeline(cfg)
	result, err := p.Run(raw, "", branch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitBadInput)
	}

	styleName, _ := cmd.Flags().GetString("style")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var hl *diff.Highlighter
	if !noColor {
		hl = diff.NewHighlighter(styleName)
	}

	byLine := violationIndex(result.Verdict.Violations)

	for i := range result.ChangeSet.Files {
		f := &result.ChangeSet.Files[i]
		fmt.Println(styleFile.Render(fmt.Sprintf("%s (%s, +%d -%d)",
			f.Name(), f.Kind, f.AddedLines, f.RemovedLines)))
		if f.Kind == diff.KindBinary {
			fmt.Println(styleDim.Render("  binary file, content not shown"))
			fmt.Println()
			continue
		}
		for _, h := range f.Hunks {
			header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
			if h.Section != "" {
				header += " " + h.Section
			}
			fmt.Println(styleHeader.Render(header))
			printHunk(f.Path, h, hl, byLine)
		}
		fmt.Println()
	}

	if result.Draft != nil {
		fmt.Printf("Suggested: %s\n", result.Draft.Header())
	}
	errs, warns := result.Verdict.Counts()
	fmt.Printf("%d error(s), %d warning(s)\n", errs, warns)
	return nil
}

func printHunk(path string, h diff.Hunk, hl *diff.Highlighter, byLine map[string][]rules.Violation) {
	var highlighted []diff.HighlightedLine
	if hl != nil {
		highlighted = hl.HighlightHunk(path, h)
	}

	lineNum := h.NewStart
	for i, line := range h.Lines {
		marker, lineStyle := " ", styleDim
		switch line.Op {
		case diff.OpAdded:
			marker, lineStyle = "+", styleAdded
		case diff.OpRemoved:
			marker, lineStyle = "-", styleRemoved
		}

		text := line.Text
		if hl != nil && line.Op != diff.OpRemoved && i < len(highlighted) {
			text = renderTokens(highlighted[i])
		}
		fmt.Printf("%s %s\n", lineStyle.Render(marker), text)

		if line.Op == diff.OpAdded {
			key := fmt.Sprintf("%s:%d", path, lineNum)
			for _, v := range byLine[key] {
				fmt.Printf("    %s\n", renderViolation(v))
			}
		}
		if line.Op != diff.OpRemoved {
			lineNum++
		}
	}
}

func renderTokens(hl diff.HighlightedLine) string {
	var b strings.Builder
	for _, tok := range hl.Tokens {
		if tok.Color != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(tok.Color)).Render(tok.Text))
		} else {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

func violationIndex(viols []rules.Violation) map[string][]rules.Violation {
	byLine := make(map[string][]rules.Violation)
	for _, v := range viols {
		if v.Path == "" || v.Line == 0 {
			continue
		}
		key := fmt.Sprintf("%s:%d", v.Path, v.Line)
		byLine[key] = append(byLine[key], v)
	}
	return byLine
}

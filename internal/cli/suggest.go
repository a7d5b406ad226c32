package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [commit-range]",
	Short: "Synthesize a conventional commit message for the staged diff",
	Long: `Classify the staged changes and print a draft commit message.
With high classification confidence the subject is derived from the
dominant hunk; otherwise it contains a placeholder to fill in.

Examples:
  commitward suggest                 # staged changes
  git diff HEAD~1 | commitward suggest -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntP("context", "C", 3, "lines of context around changes")
	suggestCmd.Flags().Bool("full", false, "print body and footer, not just the header")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	contextLines, _ := cmd.Flags().GetInt("context")

	raw, err := getDiff(args, contextLines)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		fmt.Fprintln(os.Stderr, "No changes to suggest a message for.")
		return nil
	}

	p, branch := buildPipeline(cfg)
	result, err := p.Run(raw, "", branch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitBadInput)
	}

	fmt.Fprintf(os.Stderr, "Confidence: %.0f%% (%s)\n",
		result.Classification.Confidence*100, result.Classification.Reason)

	full, _ := cmd.Flags().GetBool("full")
	if full {
		fmt.Println(result.Draft.Format())
	} else {
		fmt.Println(result.Draft.Header())
	}
	return nil
}

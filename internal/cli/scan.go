package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/commitward/commitward/internal/diff"
	"github.com/commitward/commitward/internal/secrets"
)

var scanCmd = &cobra.Command{
	Use:   "scan [commit-range]",
	Short: "Scan added lines for credential-shaped patterns and high-entropy tokens",
	Long: `Run only the secret scanner over the diff. Removed and context lines
are never scanned. Exits non-zero when findings exist and block_on_secret
is configured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	scanCmd.Flags().IntP("context", "C", 3, "lines of context around changes")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	contextLines, _ := cmd.Flags().GetInt("context")

	raw, err := getDiff(args, contextLines)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		fmt.Println("No changes to scan.")
		return nil
	}

	cs, err := diff.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitBadInput)
	}

	findings := secrets.New(cfg).Scan(cs)

	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		type findingJSON struct {
			Path       string  `json:"path"`
			Line       int     `json:"line"`
			Pattern    string  `json:"pattern"`
			Excerpt    string  `json:"excerpt"`
			Confidence float64 `json:"confidence"`
		}
		out := make([]findingJSON, 0, len(findings))
		for _, f := range findings {
			out = append(out, findingJSON(f))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
	} else {
		if len(findings) == 0 {
			fmt.Println(stylePass.Render("No secrets found."))
		}
		for _, f := range findings {
			fmt.Printf("%s %s:%d %s (%s)\n",
				styleError.Render("!"), f.Path, f.Line, f.Pattern, styleDim.Render(f.Excerpt))
		}
	}

	if len(findings) > 0 && cfg.Security.BlockOnSecret {
		os.Exit(ExitFail)
	}
	return nil
}

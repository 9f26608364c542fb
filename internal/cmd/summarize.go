package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/pipeline"
	"github.com/namelens/sumlens/internal/summarize"
)

var (
	summarizeFile    string
	summarizeTokens  int
	summarizeOffline bool
)

// summarizeResult is what the summarize command prints.
type summarizeResult struct {
	Summary      string `json:"summary"`
	Source       string `json:"source"`
	UsedExternal bool   `json:"used_external"`
	Error        string `json:"error,omitempty"`
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [text...]",
	Short: "Summarize text once without starting the server",
	Long: `Summarize text given as arguments, read from --file, or piped on stdin
(--file -). The provider chain is used unless --offline is set; no rate
limit applies and nothing is stored.`,
	Example: `  sumlens summarize "First sentence. Second sentence."
  cat article.txt | sumlens summarize --file - --tokens 150
  sumlens summarize --offline --file notes.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readSummarizeInput(cmd.InOrStdin(), summarizeFile, args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("text is required (pass arguments, --file path, or --file -)")
		}

		var result summarizeResult
		if summarizeOffline {
			result = summarizeResult{
				Summary: pipeline.SummarizeOffline(text, summarizeTokens),
				Source:  summarize.Source,
			}
		} else {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			chain, err := newChain(cfg, observability.CLILogger)
			if err != nil {
				return err
			}
			pipe := newPipeline(cfg, nil, chain, nil, observability.CLILogger)
			resp, err := pipe.Summarize(cmd.Context(), pipeline.Request{Text: text, Tokens: summarizeTokens})
			if err != nil {
				return err
			}
			result = summarizeResult{
				Summary:      resp.Summary,
				Source:       resp.Source,
				UsedExternal: resp.UsedExternal,
				Error:        resp.Error,
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// readSummarizeInput resolves the text from --file or the positional
// arguments. "-" reads stdin.
func readSummarizeInput(stdin io.Reader, file string, args []string) (string, error) {
	file = strings.TrimSpace(file)
	if file != "" && len(args) > 0 {
		return "", errors.New("pass text either as arguments or with --file, not both")
	}
	switch file {
	case "":
		return strings.Join(args, " "), nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&summarizeFile, "file", "f", "", "read text from a file (- for stdin)")
	summarizeCmd.Flags().IntVarP(&summarizeTokens, "tokens", "t", 0, "token budget (default summarizer.default_tokens)")
	summarizeCmd.Flags().BoolVar(&summarizeOffline, "offline", false, "skip providers and use the extractive summarizer")
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/sumlens/internal/output"
)

var (
	rateLimitResetAll    bool
	rateLimitResetClient string
	rateLimitResetPrefix string
	rateLimitResetYes    bool
	rateLimitResetDryRun bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset rate limit counters",
	Example: `  sumlens rate-limit reset --client 203.0.113.9
  sumlens rate-limit reset --all --dry-run
  sumlens rate-limit reset --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format == output.FormatMarkdown {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		selected := 0
		for _, set := range []bool{rateLimitResetAll, strings.TrimSpace(rateLimitResetClient) != "", strings.TrimSpace(rateLimitResetPrefix) != ""} {
			if set {
				selected++
			}
		}
		if selected != 1 {
			return errors.New("exactly one of --all, --client or --prefix is required")
		}
		if rateLimitResetAll && !rateLimitResetYes && !rateLimitResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		backend, closeAll, err := openCounterAdmin(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		prefix := cfg.RateLimit.KeyPrefix
		switch {
		case rateLimitResetClient != "":
			prefix = cfg.RateLimit.KeyPrefix + strings.TrimSpace(rateLimitResetClient)
		case rateLimitResetPrefix != "":
			prefix = strings.TrimSpace(rateLimitResetPrefix)
		}

		entries, err := backend.Admin.ListCounters(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(entries))
		for _, e := range entries {
			// --client is an exact match, not a prefix.
			if rateLimitResetClient != "" && e.Key != prefix {
				continue
			}
			keys = append(keys, e.Key)
		}

		var sb strings.Builder
		if rateLimitResetDryRun {
			if err := writeRateLimitResetResult(format, &sb, keys, 0, true); err != nil {
				return err
			}
			return writeRendered(cmd, "rate-limit.reset", format, sb.String())
		}

		deleted, err := backend.Admin.DeleteCounters(cmd.Context(), keys)
		if err != nil {
			return err
		}
		if err := writeRateLimitResetResult(format, &sb, keys, deleted, false); err != nil {
			return err
		}
		return writeRendered(cmd, "rate-limit.reset", format, sb.String())
	},
}

func writeRateLimitResetResult(format output.Format, w io.Writer, keys []string, deleted int, dryRun bool) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{
			"matched": len(keys),
			"deleted": deleted,
			"dry_run": dryRun,
			"keys":    keys,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d counter(s)\n", len(keys))
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d counter(s)\n", deleted, len(keys))
	return err
}

func init() {
	addOutputFlags(rateLimitResetCmd)
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset every counter under rate_limit.key_prefix")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetClient, "client", "", "Reset a single client identifier (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset counters whose key starts with prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be deleted")
}

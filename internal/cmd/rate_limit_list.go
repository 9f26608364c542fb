package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/namelens/sumlens/internal/output"
)

var rateLimitListPrefix string

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rate limit counters",
	Long: `List the per-client counters held by the configured rate limit backend.

The memory backend lives inside a running server, so listing it from the
CLI always shows an empty set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
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

		prefix := strings.TrimSpace(rateLimitListPrefix)
		if prefix == "" {
			prefix = cfg.RateLimit.KeyPrefix
		}
		entries, err := backend.Admin.ListCounters(cmd.Context(), prefix)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatCounters(output.CounterList{
			Entries: entries,
			Limit:   cfg.RateLimit.PerHour,
			Window:  cfg.RateLimit.Window,
			Now:     time.Now(),
		})
		if err != nil {
			return err
		}
		return writeRendered(cmd, "rate-limit.list", format, rendered)
	},
}

func init() {
	addOutputFlags(rateLimitListCmd)
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "Key prefix to list (default rate_limit.key_prefix)")
}

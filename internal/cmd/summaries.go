package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/namelens/sumlens/internal/output"
	"github.com/namelens/sumlens/internal/store"
)

var (
	summariesEmail    string
	summariesClientIP string
	summariesLimit    int
	summariesOffset   int

	purgeBefore time.Duration
	purgeDryRun bool
	purgeYes    bool
)

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Browse and prune stored summaries",
}

var summariesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored summaries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		db, closeStore, err := openConfiguredStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		filter := store.SummaryFilter{
			Email:    summariesEmail,
			ClientIP: summariesClientIP,
			Limit:    summariesLimit,
			Offset:   summariesOffset,
		}
		records, err := db.ListSummaries(cmd.Context(), filter)
		if err != nil {
			return err
		}
		total, err := db.CountSummaries(cmd.Context(), filter)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatSummaries(output.SummaryList{Records: records, Total: total})
		if err != nil {
			return err
		}
		return writeRendered(cmd, "summaries.list", format, rendered)
	},
}

var summariesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		db, closeStore, err := openConfiguredStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		rec, err := db.GetSummary(cmd.Context(), strings.TrimSpace(args[0]))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("summary %s not found", args[0])
		}
		if err != nil {
			return err
		}
		rendered, err := output.NewFormatter(format).FormatSummary(rec)
		if err != nil {
			return err
		}
		return writeRendered(cmd, "summary."+rec.ID, format, rendered)
	},
}

var summariesPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete stored summaries older than a cutoff",
	Example: `  sumlens summaries purge --before 720h --dry-run
  sumlens summaries purge --before 720h --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if purgeBefore <= 0 {
			return errors.New("--before must be a positive duration")
		}
		filter := store.SummaryFilter{Before: time.Now().Add(-purgeBefore)}

		db, closeStore, err := openConfiguredStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		matched, err := db.CountSummaries(cmd.Context(), filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		cutoff := filter.Before.UTC().Format(time.RFC3339)
		if purgeDryRun {
			_, err := fmt.Fprintf(out, "Would delete %d summar(ies) created before %s\n", matched, cutoff)
			return err
		}
		if matched == 0 {
			_, err := fmt.Fprintf(out, "No summaries created before %s\n", cutoff)
			return err
		}
		if !purgeYes && !confirm(cmd, fmt.Sprintf("Delete %d summar(ies) created before %s?", matched, cutoff)) {
			_, err := fmt.Fprintln(out, "Aborted")
			return err
		}

		deleted, err := db.PurgeSummaries(cmd.Context(), filter)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Deleted %d summar(ies)\n", deleted)
		return err
	},
}

// openConfiguredStore opens the configured store for a CLI command.
func openConfiguredStore(cmd *cobra.Command) (*store.Store, func(), error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// confirm asks a yes/no question on cmd's input.
func confirm(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func init() {
	rootCmd.AddCommand(summariesCmd)
	summariesCmd.AddCommand(summariesListCmd, summariesShowCmd, summariesPurgeCmd)

	addOutputFlags(summariesListCmd)
	summariesListCmd.Flags().StringVar(&summariesEmail, "email", "", "only summaries for this email")
	summariesListCmd.Flags().StringVar(&summariesClientIP, "client-ip", "", "only summaries from this client IP")
	summariesListCmd.Flags().IntVar(&summariesLimit, "limit", store.DefaultListLimit, fmt.Sprintf("page size (max %d)", store.MaxListLimit))
	summariesListCmd.Flags().IntVar(&summariesOffset, "offset", 0, "records to skip")

	addOutputFlags(summariesShowCmd)

	summariesPurgeCmd.Flags().DurationVar(&purgeBefore, "before", 0, "delete summaries older than this age (e.g. 720h)")
	summariesPurgeCmd.Flags().BoolVar(&purgeDryRun, "dry-run", false, "show how many summaries would be deleted")
	summariesPurgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "skip the confirmation prompt")
}

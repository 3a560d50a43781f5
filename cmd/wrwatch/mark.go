package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/wrwatch/internal/config"
	"github.com/okian/wrwatch/internal/domain/watch"
)

func init() {
	rootCmd.AddCommand(watchedCmd, deferCmd, unwatchableCmd)
}

var watchedCmd = &cobra.Command{
	Use:     "watched <run-id>",
	Aliases: []string{"check"},
	Short:   "Mark a run as watched, hiding its category until the record changes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return markRun(cmd, args[0], "watched", func(rc *config.RunConfig) {
			rc.Watched = true
		})
	},
}

var deferCmd = &cobra.Command{
	Use:   "defer <run-id> [until]",
	Short: "Hide a run until later: a date, an RFC 3339 time or an offset like 7d (default 1d)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		when := ""
		if len(args) == 2 {
			when = args[1]
		}
		until, err := watch.ParseDeferral(when, time.Now())
		if err != nil {
			return err
		}
		stamp := until.UTC().Format(time.RFC3339)
		return markRun(cmd, args[0], "deferred until "+stamp, func(rc *config.RunConfig) {
			rc.DeferredUntil = stamp
		})
	},
}

var unwatchableCmd = &cobra.Command{
	Use:   "unwatchable <run-id>",
	Short: "Mark a run as unwatchable so the next fastest run becomes the record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return markRun(cmd, args[0], "unwatchable", func(rc *config.RunConfig) {
			rc.Unwatchable = true
		})
	},
}

// markRun records watch state for runID in the config file the command
// was started with.
func markRun(cmd *cobra.Command, runID, what string, update func(*config.RunConfig)) error {
	if err := config.UpdateRun(cmd.Context(), config.ResolvePath(configPath), runID, update); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", runID, what)
	return err
}

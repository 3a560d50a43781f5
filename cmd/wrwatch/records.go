package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/wrwatch/internal/domain/report"
)

var recordsFormat string

func init() {
	recordsCmd.Flags().StringVarP(&recordsFormat, "format", "f", "json", "Output format: json or text")
	rootCmd.AddCommand(recordsCmd)
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Run one pass over every configured category and print the report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService(cfg)
		if err != nil {
			return err
		}
		rep, err := svc.Report(cmd.Context())
		if err != nil {
			return err
		}
		switch recordsFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		case "text":
			return writeText(cmd.OutOrStdout(), rep)
		default:
			return fmt.Errorf("unknown format %q", recordsFormat)
		}
	},
}

// writeText prints the report as a plain listing, one line per new record.
func writeText(w io.Writer, rep report.Report) error {
	if _, err := fmt.Fprintf(w, "%d new records\n", rep.Total); err != nil {
		return err
	}
	if len(rep.Notifications) > 0 {
		if _, err := fmt.Fprintf(w, "\nNotifications\n"); err != nil {
			return err
		}
		for _, n := range rep.Notifications {
			if _, err := fmt.Fprintf(w, "  %s  %s\n", n.Text, n.WebLink); err != nil {
				return err
			}
		}
	}
	for _, sec := range rep.Sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", sec.Title); err != nil {
			return err
		}
		for _, e := range sec.Entries {
			if _, err := fmt.Fprintf(w, "  New WR in %s: %s  %s\n", e.Category, e.Time, e.Run.WebLink); err != nil {
				return err
			}
		}
	}
	for _, f := range rep.Failures {
		where := f.Category
		if f.Game != "" {
			where = f.Game + "/" + f.Category
		}
		if _, err := fmt.Fprintf(w, "\nerror: %s: %s\n", where, f.Error); err != nil {
			return err
		}
	}
	return nil
}

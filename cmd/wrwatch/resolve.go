package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/okian/wrwatch/internal/domain/model"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [game] [category]",
	Short: "Print the tied fastest watchable runs of one category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cfg)
		if err != nil {
			return err
		}
		runs, err := svc.Resolve(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out := struct {
			Game      string      `json:"game"`
			Category  string      `json:"category"`
			Records   []model.Run `json:"records"`
			Presented *model.Run  `json:"presented"`
		}{Game: args[0], Category: args[1], Records: runs}
		if run, ok := svc.Present(runs); ok {
			out.Presented = &run
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Print the unique location set of the raw team export as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := a.newPipeline(false)
			if err != nil {
				return err
			}
			entries, err := p.Extract()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
}

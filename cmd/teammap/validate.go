package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/team-map-service/internal/domain"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the team dataset against the geocode checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.store.LoadDataset()
			if err != nil {
				return err
			}
			report, err := a.store.LoadReport()
			if err != nil {
				return err
			}
			if report == nil {
				return fmt.Errorf("no checkpoint at %s", a.cfg.CheckpointPath)
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, p := range domain.ValidateDataset(ds, report) {
				if p.Passed() {
					fmt.Fprintf(out, "PASS  %s\n", p.Name)
					continue
				}
				failed++
				fmt.Fprintf(out, "FAIL  %s (%d errors)\n", p.Name, len(p.Errors))
				for _, e := range p.Errors {
					fmt.Fprintf(out, "      %s\n", e)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d validation phase(s) failed", failed)
			}
			return nil
		},
	}
}

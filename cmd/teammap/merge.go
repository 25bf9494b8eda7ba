package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/team-map-service/internal/domain"
)

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Join raw records to the checkpoint and write the team dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.pushMetrics("merge")

			p, _, err := a.newPipeline(false)
			if err != nil {
				return err
			}
			ds, warnings, err := p.RunMerge(cmd.Context())
			if err != nil {
				return err
			}
			printMerge(cmd, ds, warnings)
			return nil
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run geocode then merge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.pushMetrics("build")

			p, resolver, err := a.newPipeline(force || a.cfg.ForceGeocode)
			if err != nil {
				return err
			}
			if bar := progressBar("Geocoding"); bar != nil {
				resolver.SetProgress(bar)
				defer bar.Finish() //nolint:errcheck // cosmetic
			}

			ds, warnings, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			printMerge(cmd, ds, warnings)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reprocess every location, ignoring the existing checkpoint")
	return cmd
}

func printMerge(cmd *cobra.Command, ds *domain.Dataset, warnings []domain.MergeWarning) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "members written: %d  skipped: %d\n", ds.Metadata.TotalMembers, len(warnings))
	for _, w := range warnings {
		fmt.Fprintf(out, "  skipped %s\n", w)
	}
}

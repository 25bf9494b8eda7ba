package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/team-map-service/internal/domain"
)

func newGeocodeCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Geocode every unique location and write the checkpoint",
		Long: `
Resolves each unique (location, country) pair through the configured provider,
one request at a time with GEOCODER_DELAY between requests, then reverse
geocodes a sample of the results to flag suspicious matches.

Locations already resolved successfully in an existing checkpoint are reused
unless --force is given. An interrupted run still writes what it resolved.
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.pushMetrics("geocode")

			p, resolver, err := a.newPipeline(force || a.cfg.ForceGeocode)
			if err != nil {
				return err
			}
			if bar := progressBar("Geocoding"); bar != nil {
				resolver.SetProgress(bar)
				defer bar.Finish() //nolint:errcheck // cosmetic
			}

			report, err := p.RunGeocode(cmd.Context())
			if report != nil {
				printSummary(cmd, report)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reprocess every location, ignoring the existing checkpoint")
	return cmd
}

func printSummary(cmd *cobra.Command, report *domain.GeocodeReport) {
	s := report.Summary
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "locations: %d  successful: %d  failed: %d  problematic: %d  mismatches: %d  reused: %d\n",
		s.TotalLocations, s.Successful, s.Failed, s.Problematic, s.Mismatches, s.Reused)
	for _, f := range report.FailedGeocodes {
		fmt.Fprintf(out, "  failed %q (%d members): %s\n", f.Query, len(f.Members), f.Error)
	}
	for _, m := range report.VerificationMismatches {
		fmt.Fprintf(out, "  check %q, %s: reverse geocoded to %q\n", m.Location, m.Country, m.ReverseAddress)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/team-map-service/internal/adapter/file"
	"github.com/couchcryptid/team-map-service/internal/adapter/google"
	"github.com/couchcryptid/team-map-service/internal/adapter/mapbox"
	"github.com/couchcryptid/team-map-service/internal/adapter/nominatim"
	"github.com/couchcryptid/team-map-service/internal/config"
	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
	"github.com/couchcryptid/team-map-service/internal/pipeline"
	"github.com/couchcryptid/team-map-service/internal/throttle"
)

// app holds what every subcommand shares. It is filled in by the root command's
// PersistentPreRunE.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   *file.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "teammap",
		Short: "Geocode a team directory and serve it as map data",
		Long: `
teammap turns a scraped team directory into map-ready data: it extracts the
unique locations, geocodes them against a rate-limited provider, verifies a
sample by reverse geocoding, merges coordinates back into member records, and
serves the result over a small read-only API.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.AddCommand(
		newExtractCmd(a),
		newGeocodeCmd(a),
		newMergeCmd(a),
		newBuildCmd(a),
		newValidateCmd(a),
		newServeCmd(a),
		newPublishCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(a.logger)
	a.metrics = observability.NewMetrics()
	a.store = &file.Store{
		RawPath:       cfg.RawTeamPath,
		ReportPath:    cfg.CheckpointPath,
		DatasetPath:   cfg.DatasetPath,
		ApplicantPath: cfg.ApplicantPath,
	}
	return nil
}

// newGeocoder builds the provider selected by GEOCODER_PROVIDER.
func (a *app) newGeocoder() (domain.Geocoder, error) {
	switch a.cfg.GeocoderProvider {
	case config.ProviderMapbox:
		return mapbox.NewClient(a.cfg.MapboxToken, a.cfg.GeocoderTimeout, a.metrics, a.logger), nil
	case config.ProviderGoogle:
		client, err := google.NewClient(a.cfg.GoogleMapsAPIKey, a.cfg.GeocoderTimeout, a.metrics, a.logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nominatim.NewClient(a.cfg.NominatimURL, a.cfg.GeocoderUserAgent, a.cfg.GeocoderTimeout, a.metrics, a.logger), nil
	}
}

// newPipeline wires the offline stages. The returned resolver is exposed so the
// caller can attach a progress bar.
func (a *app) newPipeline(force bool) (*pipeline.Pipeline, *pipeline.Resolver, error) {
	geocoder, err := a.newGeocoder()
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("geocoder configured",
		"provider", a.cfg.GeocoderProvider,
		"delay", a.cfg.GeocoderDelay,
		"verify_sample", a.cfg.VerifySample,
		"force", force,
	)

	resolver := pipeline.NewResolver(
		geocoder,
		throttle.New(nil, a.cfg.GeocoderDelay),
		pipeline.ResolverOptions{VerifySample: a.cfg.VerifySample, Force: force},
		a.logger,
		a.metrics,
	)
	p := pipeline.New(a.store, a.store, a.store, resolver,
		domain.DefaultHeuristics(),
		domain.MergeOptions{
			Source:       a.cfg.DatasetSource,
			DataVersion:  a.cfg.DataVersion,
			H3Resolution: a.cfg.H3Resolution,
		},
		a.logger, a.metrics,
	)
	return p, resolver, nil
}

// progressBar returns a bar on stderr when it is a terminal, nil otherwise.
func progressBar(description string) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(0,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// pushMetrics sends this run's metrics to the Pushgateway when one is configured.
func (a *app) pushMetrics(job string) {
	if err := observability.Push(a.cfg.PushgatewayURL, "teammap_"+job, prometheus.DefaultGatherer); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}

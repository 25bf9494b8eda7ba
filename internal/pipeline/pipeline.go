package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
)

// RecordSource reads the raw team export.
type RecordSource interface {
	LoadRecords() ([]domain.RawTeamRecord, error)
}

// CheckpointStore persists the geocoding stage output. LoadReport returns
// (nil, nil) when no checkpoint exists yet.
type CheckpointStore interface {
	LoadReport() (*domain.GeocodeReport, error)
	SaveReport(report *domain.GeocodeReport) error
}

// DatasetSink receives the merged dataset.
type DatasetSink interface {
	SaveDataset(ds *domain.Dataset) error
}

// ErrNoCheckpoint is returned by RunMerge when the geocoding stage has not run.
var ErrNoCheckpoint = errors.New("no geocode checkpoint found, run geocode first")

// Pipeline wires the offline stages: extract, geocode/verify, merge.
type Pipeline struct {
	records     RecordSource
	checkpoints CheckpointStore
	sink        DatasetSink
	resolver    *Resolver
	heuristics  domain.Heuristics
	mergeOpts   domain.MergeOptions
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(records RecordSource, checkpoints CheckpointStore, sink DatasetSink, resolver *Resolver,
	h domain.Heuristics, mergeOpts domain.MergeOptions, logger *slog.Logger, metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		records:     records,
		checkpoints: checkpoints,
		sink:        sink,
		resolver:    resolver,
		heuristics:  h,
		mergeOpts:   mergeOpts,
		logger:      logger,
		metrics:     metrics,
	}
}

// Extract loads the raw records and returns the unique location set.
func (p *Pipeline) Extract() ([]domain.LocationEntry, error) {
	records, err := p.records.LoadRecords()
	if err != nil {
		return nil, err
	}
	entries := domain.ExtractLocations(records, p.heuristics)
	p.logger.Info("locations extracted", "records", len(records), "unique", len(entries))
	return entries, nil
}

// RunGeocode resolves every unique location and writes the checkpoint. A
// cancelled run still writes what it resolved before returning the context error.
func (p *Pipeline) RunGeocode(ctx context.Context) (*domain.GeocodeReport, error) {
	entries, err := p.Extract()
	if err != nil {
		return nil, err
	}

	prior, err := p.checkpoints.LoadReport()
	if err != nil {
		return nil, err
	}

	report, runErr := p.resolver.Resolve(ctx, entries, prior)
	if report == nil {
		return nil, runErr
	}
	if err := p.checkpoints.SaveReport(report); err != nil {
		return nil, errors.Join(runErr, err)
	}
	p.logger.Info("checkpoint saved",
		"locations", report.Summary.TotalLocations,
		"successful", report.Summary.Successful,
		"failed", report.Summary.Failed,
		"reused", report.Summary.Reused,
	)
	return report, runErr
}

// RunMerge joins raw records to the checkpoint and writes the dataset. Records
// without a usable result are left out and returned as warnings.
func (p *Pipeline) RunMerge(_ context.Context) (*domain.Dataset, []domain.MergeWarning, error) {
	start := time.Now()

	records, err := p.records.LoadRecords()
	if err != nil {
		return nil, nil, err
	}
	report, err := p.checkpoints.LoadReport()
	if err != nil {
		return nil, nil, err
	}
	if report == nil {
		return nil, nil, ErrNoCheckpoint
	}

	ds, warnings := domain.Merge(records, report, p.mergeOpts)
	for _, w := range warnings {
		p.logger.Warn("member skipped", "id", w.ID, "name", w.Name,
			"location", w.Location, "country", w.Country, "reason", w.Reason)
	}
	p.metrics.MembersMerged.Add(float64(len(ds.Team)))
	p.metrics.MembersDropped.Add(float64(len(warnings)))

	if err := p.sink.SaveDataset(ds); err != nil {
		return nil, nil, err
	}
	p.metrics.StageDuration.WithLabelValues("merge").Observe(time.Since(start).Seconds())
	p.logger.Info("dataset written", "members", len(ds.Team), "skipped", len(warnings))
	return ds, warnings, nil
}

// Run executes geocode then merge. Merge is skipped if geocoding was interrupted.
func (p *Pipeline) Run(ctx context.Context) (*domain.Dataset, []domain.MergeWarning, error) {
	if _, err := p.RunGeocode(ctx); err != nil {
		return nil, nil, fmt.Errorf("geocode stage: %w", err)
	}
	ds, warnings, err := p.RunMerge(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("merge stage: %w", err)
	}
	return ds, warnings, nil
}

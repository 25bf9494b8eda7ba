package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
	"github.com/couchcryptid/team-map-service/internal/throttle"
)

// Progress receives the location count once, then one tick per location
// resolved or reused. *progressbar.ProgressBar satisfies it.
type Progress interface {
	ChangeMax(n int)
	Add(n int) error
}

// ResolverOptions tunes the geocoding stage.
type ResolverOptions struct {
	// VerifySample is the number of successful results spot-checked by reverse
	// geocoding. Zero disables verification.
	VerifySample int
	// Force reprocesses every location even when the prior checkpoint already
	// holds a successful result for it.
	Force bool
}

// Resolver geocodes unique locations one at a time and verifies a sample of the
// results. Forward and reverse requests share one throttle.
type Resolver struct {
	geocoder domain.Geocoder
	throttle *throttle.Throttle
	opts     ResolverOptions
	progress Progress
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewResolver creates a Resolver. The throttle must not be shared with another
// concurrent caller.
func NewResolver(g domain.Geocoder, t *throttle.Throttle, opts ResolverOptions, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		geocoder: g,
		throttle: t,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetProgress attaches a progress sink. Pass nil to detach.
func (r *Resolver) SetProgress(p Progress) { r.progress = p }

// Resolve produces the checkpoint for entries. Results for keys that succeeded
// in prior with the same query are reused unless Force is set. When ctx is
// cancelled mid-run the partial report is returned together with the context
// error so the caller can persist it. Keys the interrupted run never reached
// keep their prior usable result, even under Force.
func (r *Resolver) Resolve(ctx context.Context, entries []domain.LocationEntry, prior *domain.GeocodeReport) (*domain.GeocodeReport, error) {
	results := make(map[string]domain.GeocodeResult, len(entries))
	pending := make([]domain.LocationEntry, 0, len(entries))
	reused := 0
	if r.progress != nil {
		r.progress.ChangeMax(len(entries))
	}

	for _, e := range entries {
		if res, ok := r.reusable(e, prior); ok {
			results[e.Key] = res
			reused++
			r.metrics.LocationsProcessed.WithLabelValues("reused").Inc()
			r.tick()
			continue
		}
		pending = append(pending, e)
	}

	r.logger.Info("geocoding locations",
		"total", len(entries),
		"pending", len(pending),
		"reused", reused,
		"interval", r.throttle.Interval(),
	)

	start := time.Now()
	_, err := throttle.Each(ctx, r.throttle, pending, func(ctx context.Context, _ int, e domain.LocationEntry) {
		res, ok := r.forward(ctx, e)
		if !ok {
			return
		}
		results[e.Key] = res
		r.tick()
	})
	r.metrics.StageDuration.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		kept := keepUnreached(entries, prior, results)
		r.logger.Warn("geocoding interrupted, returning partial results",
			"resolved", len(results)-kept,
			"kept", kept,
			"error", err,
		)
		return domain.BuildReport(entries, results, nil, reused), err
	}

	mismatches, err := r.verify(ctx, entries, results)
	report := domain.BuildReport(entries, results, mismatches, reused)
	if err != nil {
		r.logger.Warn("verification interrupted", "error", err)
		return report, err
	}

	r.logger.Info("geocoding complete",
		"successful", report.Summary.Successful,
		"failed", report.Summary.Failed,
		"problematic", report.Summary.Problematic,
		"mismatches", report.Summary.Mismatches,
	)
	return report, nil
}

func (r *Resolver) reusable(e domain.LocationEntry, prior *domain.GeocodeReport) (domain.GeocodeResult, bool) {
	if r.opts.Force {
		return domain.GeocodeResult{}, false
	}
	return priorUsable(e, prior)
}

// keepUnreached copies prior usable results into results for entries that have
// none yet and returns how many it copied.
func keepUnreached(entries []domain.LocationEntry, prior *domain.GeocodeReport, results map[string]domain.GeocodeResult) int {
	kept := 0
	for _, e := range entries {
		if _, ok := results[e.Key]; ok {
			continue
		}
		if res, ok := priorUsable(e, prior); ok {
			results[e.Key] = res
			kept++
		}
	}
	return kept
}

func priorUsable(e domain.LocationEntry, prior *domain.GeocodeReport) (domain.GeocodeResult, bool) {
	res, ok := prior.Result(e.LocationKey())
	if !ok || !res.Usable() || res.Query != e.Query {
		return domain.GeocodeResult{}, false
	}
	return res, true
}

// forward issues one forward request. It reports false when the request was cut
// short by cancellation, in which case no result is recorded for the key.
func (r *Resolver) forward(ctx context.Context, e domain.LocationEntry) (domain.GeocodeResult, bool) {
	places, err := r.geocoder.ForwardGeocode(ctx, e.Query)
	if ctx.Err() != nil {
		return domain.GeocodeResult{}, false
	}

	switch {
	case err != nil:
	case len(places) == 0:
		err = domain.ErrNoResults
	case !domain.ValidCoordinates(places[0].Lat, places[0].Lon):
		err = fmt.Errorf("invalid coordinates (%v, %v)", places[0].Lat, places[0].Lon)
	}
	if err != nil {
		r.logger.Warn("geocode failed",
			"location", e.Location,
			"country", e.Country,
			"query", e.Query,
			"members", e.Count,
			"error", err,
		)
		r.metrics.LocationsProcessed.WithLabelValues("failed").Inc()
		return domain.NewGeocodeFailure(e, err), true
	}

	r.logger.Debug("geocoded", "query", e.Query, "lat", places[0].Lat, "lon", places[0].Lon)
	r.metrics.LocationsProcessed.WithLabelValues("success").Inc()
	return domain.NewGeocodeSuccess(e, places[0]), true
}

// verify reverse-geocodes the first VerifySample successful results in entry
// order. Reverse failures and empty answers are skipped.
func (r *Resolver) verify(ctx context.Context, entries []domain.LocationEntry, results map[string]domain.GeocodeResult) ([]domain.VerificationMismatch, error) {
	sample := make([]domain.GeocodeResult, 0, r.opts.VerifySample)
	for _, e := range entries {
		if len(sample) >= r.opts.VerifySample {
			break
		}
		if res, ok := results[e.Key]; ok && res.Success {
			sample = append(sample, res)
		}
	}
	if len(sample) == 0 {
		return nil, nil
	}

	r.logger.Info("verifying sample", "size", len(sample))
	start := time.Now()
	defer func() {
		r.metrics.StageDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()

	var mismatches []domain.VerificationMismatch
	_, err := throttle.Each(ctx, r.throttle, sample, func(ctx context.Context, _ int, res domain.GeocodeResult) {
		places, err := r.geocoder.ReverseGeocode(ctx, res.Latitude, res.Longitude)
		if err != nil {
			r.logger.Debug("reverse geocode failed, skipping", "location", res.Location, "error", err)
			return
		}
		if len(places) == 0 {
			r.logger.Debug("reverse geocode returned nothing, skipping", "location", res.Location)
			return
		}
		if domain.VerificationMatches(res.Location, places[0]) {
			return
		}

		r.logger.Warn("verification mismatch",
			"location", res.Location,
			"country", res.Country,
			"reverse_address", places[0].FormattedAddress,
			"reverse_city", places[0].City,
		)
		r.metrics.VerificationMismatches.Inc()
		mismatches = append(mismatches, domain.VerificationMismatch{
			Location:       res.Location,
			Country:        res.Country,
			Latitude:       res.Latitude,
			Longitude:      res.Longitude,
			ReverseAddress: places[0].FormattedAddress,
			ReverseCity:    places[0].City,
		})
	})
	if err == nil {
		err = ctx.Err()
	}
	return mismatches, err
}

func (r *Resolver) tick() {
	if r.progress == nil {
		return
	}
	_ = r.progress.Add(1)
}

package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
	"github.com/couchcryptid/team-map-service/internal/pipeline"
	"github.com/couchcryptid/team-map-service/internal/throttle"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockGeocoder struct {
	mu       sync.Mutex
	forward  map[string][]domain.Place
	errs     map[string]error
	reverse  []domain.Place
	revErr   error
	queries  []string
	reverses int
	onCall   func(query string)
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) ([]domain.Place, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	hook := m.onCall
	m.mu.Unlock()
	if hook != nil {
		hook(query)
	}
	if err, ok := m.errs[query]; ok {
		return nil, err
	}
	return m.forward[query], nil
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) ([]domain.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverses++
	if m.revErr != nil {
		return nil, m.revErr
	}
	return m.reverse, nil
}

func (m *mockGeocoder) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

type memStore struct {
	records []domain.RawTeamRecord
	loadErr error
	report  *domain.GeocodeReport
	saves   int
	dataset *domain.Dataset
}

func (s *memStore) LoadRecords() ([]domain.RawTeamRecord, error) {
	return s.records, s.loadErr
}

func (s *memStore) LoadReport() (*domain.GeocodeReport, error) { return s.report, nil }

func (s *memStore) SaveReport(r *domain.GeocodeReport) error {
	s.report = r
	s.saves++
	return nil
}

func (s *memStore) SaveDataset(ds *domain.Dataset) error {
	s.dataset = ds
	return nil
}

type countingProgress struct{ max, n int }

func (p *countingProgress) ChangeMax(n int) { p.max = n }

func (p *countingProgress) Add(n int) error {
	p.n += n
	return nil
}

// --- helpers ---

var (
	seattle = domain.Place{Lat: 47.6038, Lon: -122.3301, FormattedAddress: "Seattle, Washington, United States", City: "Seattle"}
	olsztyn = domain.Place{Lat: 53.7784, Lon: 20.4801, FormattedAddress: "Olsztyn, Poland", City: "Olsztyn"}
	pole    = domain.Place{Lat: 64.7511, Lon: -147.3494, FormattedAddress: "North Pole, Alaska, United States", City: "North Pole"}
)

func member(id int64, first, location, country string) domain.RawTeamRecord {
	return domain.RawTeamRecord{ID: id, FirstName: first, LastName: "Doe", Location: location, Country: country}
}

func newResolver(g domain.Geocoder, opts pipeline.ResolverOptions) *pipeline.Resolver {
	return pipeline.NewResolver(g, throttle.New(clockwork.NewFakeClock(), 0), opts,
		observability.DiscardLogger(), observability.NewMetricsForTesting())
}

func newGeocoder() *mockGeocoder {
	return &mockGeocoder{
		forward: map[string][]domain.Place{
			"Seattle, US": {seattle},
			"Olsztyn, PL": {olsztyn},
			"North Pole":  {pole},
		},
		errs: map[string]error{
			"Springfield, US": errors.New("status 503"),
		},
		reverse: []domain.Place{seattle},
	}
}

func extract(records ...domain.RawTeamRecord) []domain.LocationEntry {
	return domain.ExtractLocations(records, domain.DefaultHeuristics())
}

// --- resolver ---

func TestResolver_Resolve_RecordsSuccessAndFailure(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{})

	entries := extract(
		member(1, "Ann", "Greater Seattle Area", "US"),
		member(2, "Ben", "Atlantis", "US"),
		member(3, "Cat", "Springfield", "US"),
		member(4, "Dan", "", ""),
	)

	report, err := r.Resolve(context.Background(), entries, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.GeocodeSummary{TotalLocations: 4, Successful: 2, Failed: 2, Problematic: 1}, report.Summary)

	res, ok := report.Result(domain.LocationKey{Location: "Greater Seattle Area", Country: "US"})
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Equal(t, "Seattle, US", res.Query)
	assert.Equal(t, seattle.Lat, res.Latitude)
	assert.Equal(t, seattle.Lon, res.Longitude)

	res, ok = report.Result(domain.LocationKey{Location: "Atlantis", Country: "US"})
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, "no geocoding results", res.Error)

	res, ok = report.Result(domain.LocationKey{Location: "Springfield", Country: "US"})
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, "status 503", res.Error)

	res, ok = report.Result(domain.LocationKey{})
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.True(t, res.Problematic)

	// Problematic locations are processed first.
	assert.Equal(t, []string{"North Pole", "Seattle, US", "Atlantis, US", "Springfield, US"}, g.calls())
	require.Len(t, report.FailedGeocodes, 2)
	assert.Equal(t, []string{"Ben Doe"}, report.FailedGeocodes[0].Members)
}

func TestResolver_Resolve_ZeroCoordinatesAreFailures(t *testing.T) {
	g := &mockGeocoder{forward: map[string][]domain.Place{
		"Null Island": {{Lat: 0, Lon: 0, FormattedAddress: "Null Island"}},
	}}
	r := newResolver(g, pipeline.ResolverOptions{})

	report, err := r.Resolve(context.Background(), extract(member(1, "Ann", "Null Island", "")), nil)
	require.NoError(t, err)

	res, ok := report.Result(domain.LocationKey{Location: "Null Island"})
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid coordinates")
}

func TestResolver_Resolve_OneRequestPerKey(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{})
	progress := &countingProgress{}
	r.SetProgress(progress)

	entries := extract(
		member(1, "Ann", "Olsztyn, Poland", "PL"),
		member(2, "Ben", "Olsztyn, Poland", "PL"),
		member(3, "Cat", "Olsztyn, Poland", "PL"),
	)

	_, err := r.Resolve(context.Background(), entries, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Olsztyn, PL"}, g.calls())
	assert.Equal(t, 1, progress.max)
	assert.Equal(t, 1, progress.n)
}

func TestResolver_Verify_RecordsMismatches(t *testing.T) {
	g := newGeocoder()
	g.reverse = []domain.Place{{FormattedAddress: "Tacoma, Washington, United States", City: "Tacoma"}}
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewResolver(g, throttle.New(clockwork.NewFakeClock(), 0),
		pipeline.ResolverOptions{VerifySample: 10}, observability.DiscardLogger(), metrics)

	report, err := r.Resolve(context.Background(), extract(member(1, "Ann", "Seattle", "US")), nil)
	require.NoError(t, err)

	want := []domain.VerificationMismatch{{
		Location:       "Seattle",
		Country:        "US",
		Latitude:       seattle.Lat,
		Longitude:      seattle.Lon,
		ReverseAddress: "Tacoma, Washington, United States",
		ReverseCity:    "Tacoma",
	}}
	if diff := cmp.Diff(want, report.VerificationMismatches); diff != "" {
		t.Errorf("mismatches (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, report.Summary.Mismatches)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.VerificationMismatches), 0)
}

func TestResolver_Verify_MatchIsNotAMismatch(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{VerifySample: 10})

	report, err := r.Resolve(context.Background(), extract(member(1, "Ann", "Seattle", "US")), nil)
	require.NoError(t, err)
	assert.Empty(t, report.VerificationMismatches)
	assert.Equal(t, 1, g.reverses)
}

func TestResolver_Verify_SampleIsBounded(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{VerifySample: 2})

	_, err := r.Resolve(context.Background(), extract(
		member(1, "Ann", "", ""),
		member(2, "Ben", "Seattle", "US"),
		member(3, "Cat", "Olsztyn", "PL"),
	), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, g.reverses)
}

func TestResolver_Verify_ReverseErrorsSkipped(t *testing.T) {
	g := newGeocoder()
	g.revErr = errors.New("boom")
	r := newResolver(g, pipeline.ResolverOptions{VerifySample: 10})

	report, err := r.Resolve(context.Background(), extract(member(1, "Ann", "Seattle", "US")), nil)
	require.NoError(t, err)
	assert.Empty(t, report.VerificationMismatches)
	assert.Equal(t, 1, report.Summary.Successful)
}

func TestResolver_Resume_SkipsSuccessfulKeys(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{})
	entries := extract(member(1, "Ann", "Seattle", "US"), member(2, "Ben", "Olsztyn", "PL"))

	prior := domain.BuildReport(entries, map[string]domain.GeocodeResult{
		"Seattle|US": {Location: "Seattle", Country: "US", Query: "Seattle, US", Success: true, Latitude: 1.5, Longitude: 2.5},
		"Olsztyn|PL": {Location: "Olsztyn", Country: "PL", Query: "Olsztyn, PL", Error: "status 503"},
	}, nil, 0)

	report, err := r.Resolve(context.Background(), entries, prior)
	require.NoError(t, err)

	assert.Equal(t, []string{"Olsztyn, PL"}, g.calls(), "only the failed key is retried")
	assert.Equal(t, 1, report.Summary.Reused)
	res, _ := report.Result(domain.LocationKey{Location: "Seattle", Country: "US"})
	assert.Equal(t, 1.5, res.Latitude, "reused result is carried over verbatim")
	res, _ = report.Result(domain.LocationKey{Location: "Olsztyn", Country: "PL"})
	assert.True(t, res.Success)
}

func TestResolver_Resume_QueryChangeReprocesses(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{})
	entries := extract(member(1, "Ann", "Greater Seattle Area", "US"))

	prior := domain.BuildReport(entries, map[string]domain.GeocodeResult{
		"Greater Seattle Area|US": {Query: "Greater Seattle Area, US", Success: true, Latitude: 1, Longitude: 1},
	}, nil, 0)

	_, err := r.Resolve(context.Background(), entries, prior)
	require.NoError(t, err)
	assert.Equal(t, []string{"Seattle, US"}, g.calls())
}

func TestResolver_Force_ReprocessesEverything(t *testing.T) {
	g := newGeocoder()
	r := newResolver(g, pipeline.ResolverOptions{Force: true})
	entries := extract(member(1, "Ann", "Seattle", "US"))

	prior := domain.BuildReport(entries, map[string]domain.GeocodeResult{
		"Seattle|US": {Query: "Seattle, US", Success: true, Latitude: 1, Longitude: 1},
	}, nil, 0)

	report, err := r.Resolve(context.Background(), entries, prior)
	require.NoError(t, err)
	assert.Equal(t, []string{"Seattle, US"}, g.calls())
	assert.Equal(t, 0, report.Summary.Reused)
}

func TestResolver_Cancel_ReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := newGeocoder()
	g.onCall = func(query string) {
		if query == "Olsztyn, PL" {
			cancel()
		}
	}
	r := newResolver(g, pipeline.ResolverOptions{VerifySample: 10})

	report, err := r.Resolve(ctx, extract(
		member(1, "Ann", "Seattle", "US"),
		member(2, "Ben", "Olsztyn", "PL"),
		member(3, "Cat", "Springfield", "US"),
	), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	assert.Equal(t, 1, report.Summary.TotalLocations)
	_, ok := report.Result(domain.LocationKey{Location: "Olsztyn", Country: "PL"})
	assert.False(t, ok, "interrupted request must not be recorded")
	assert.Equal(t, 0, g.reverses)
}

func TestResolver_Cancel_ForceKeepsUnreachedPriorResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := newGeocoder()
	g.onCall = func(query string) {
		if query == "Olsztyn, PL" {
			cancel()
		}
	}
	r := newResolver(g, pipeline.ResolverOptions{Force: true})
	entries := extract(member(1, "Ann", "Seattle", "US"), member(2, "Ben", "Olsztyn", "PL"))
	prior := domain.BuildReport(entries, map[string]domain.GeocodeResult{
		"Seattle|US": {Query: "Seattle, US", Success: true, Latitude: 1.5, Longitude: 2.5},
		"Olsztyn|PL": {Query: "Olsztyn, PL", Success: true, Latitude: 3.5, Longitude: 4.5},
	}, nil, 0)

	report, err := r.Resolve(ctx, entries, prior)
	require.ErrorIs(t, err, context.Canceled)

	res, _ := report.Result(domain.LocationKey{Location: "Seattle", Country: "US"})
	assert.Equal(t, seattle.Lat, res.Latitude, "reached key holds the fresh result")
	res, ok := report.Result(domain.LocationKey{Location: "Olsztyn", Country: "PL"})
	require.True(t, ok, "unreached key keeps its prior result")
	assert.Equal(t, 3.5, res.Latitude)
	assert.Equal(t, 2, report.Summary.Successful)
	assert.Equal(t, 0, report.Summary.Reused)
}

func TestResolver_PacesRequests(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := newGeocoder()
	r := pipeline.NewResolver(g, throttle.New(fc, time.Second), pipeline.ResolverOptions{},
		observability.DiscardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, extract(member(1, "Ann", "Seattle", "US"), member(2, "Ben", "Olsztyn", "PL")), nil)
		done <- err
	}()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Len(t, g.calls(), 1, "second request waits for the interval")

	fc.Advance(time.Second)
	require.NoError(t, <-done)
	assert.Len(t, g.calls(), 2)
}

// --- pipeline ---

func newPipeline(store *memStore, g domain.Geocoder) *pipeline.Pipeline {
	return newPipelineWithOptions(store, g, pipeline.ResolverOptions{})
}

func newPipelineWithOptions(store *memStore, g domain.Geocoder, opts pipeline.ResolverOptions) *pipeline.Pipeline {
	return pipeline.New(store, store, store, newResolver(g, opts),
		domain.DefaultHeuristics(),
		domain.MergeOptions{Source: "test", DataVersion: "1.0", H3Resolution: -1},
		observability.DiscardLogger(), observability.NewMetricsForTesting())
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	store := &memStore{records: []domain.RawTeamRecord{
		member(1, "Ann", "Greater Seattle Area", "US"),
		member(2, "Ben", "Greater Seattle Area", "US"),
		member(3, "Cat", "Atlantis", ""),
		member(4, "Dan", "Olsztyn, Poland", "PL"),
	}}
	g := newGeocoder()

	ds, warnings, err := newPipeline(store, g).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, store.saves)
	assert.Same(t, ds, store.dataset)
	assert.Equal(t, 3, ds.Metadata.TotalMembers)
	require.Len(t, ds.Team, 3)

	ann, ben := ds.Team[0], ds.Team[1]
	assert.Equal(t, "Ann Doe", ann.Name)
	assert.Equal(t, ann.Latitude, ben.Latitude)
	assert.Equal(t, ann.Longitude, ben.Longitude)
	assert.Equal(t, seattle.Lat, ann.Latitude)
	assert.Equal(t, olsztyn.Lon, ds.Team[2].Longitude)

	require.Len(t, warnings, 1)
	assert.Equal(t, "Cat Doe", warnings[0].Name)

	// One forward request per unique key.
	assert.ElementsMatch(t, []string{"Seattle, US", "Atlantis", "Olsztyn, PL"}, g.calls())
}

func TestPipeline_RunGeocode_LoadFailureWritesNothing(t *testing.T) {
	store := &memStore{loadErr: domain.ErrMalformedInput}

	_, err := newPipeline(store, newGeocoder()).RunGeocode(context.Background())
	require.ErrorIs(t, err, domain.ErrMalformedInput)
	assert.Equal(t, 0, store.saves)
}

func TestPipeline_RunGeocode_CancelStillSavesCheckpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &memStore{records: []domain.RawTeamRecord{
		member(1, "Ann", "Seattle", "US"),
		member(2, "Ben", "Olsztyn", "PL"),
	}}
	g := newGeocoder()
	g.onCall = func(query string) {
		if query == "Olsztyn, PL" {
			cancel()
		}
	}

	report, err := newPipeline(store, g).RunGeocode(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.report.Summary.Successful)
}

func TestPipeline_RunGeocode_InterruptedForceKeepsPriorResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := []domain.RawTeamRecord{
		member(1, "Ann", "Seattle", "US"),
		member(2, "Ben", "Olsztyn", "PL"),
	}
	entries := extract(records...)
	store := &memStore{
		records: records,
		report: domain.BuildReport(entries, map[string]domain.GeocodeResult{
			"Seattle|US": {Location: "Seattle", Country: "US", Query: "Seattle, US", Success: true, Latitude: 1.5, Longitude: 2.5},
			"Olsztyn|PL": {Location: "Olsztyn", Country: "PL", Query: "Olsztyn, PL", Success: true, Latitude: 3.5, Longitude: 4.5},
		}, nil, 0),
	}
	g := newGeocoder()
	g.onCall = func(string) { cancel() }

	_, err := newPipelineWithOptions(store, g, pipeline.ResolverOptions{Force: true}).RunGeocode(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 2, store.report.Summary.Successful)
	res, ok := store.report.Result(domain.LocationKey{Location: "Seattle", Country: "US"})
	require.True(t, ok)
	assert.Equal(t, 1.5, res.Latitude)
	res, ok = store.report.Result(domain.LocationKey{Location: "Olsztyn", Country: "PL"})
	require.True(t, ok)
	assert.Equal(t, 3.5, res.Latitude)
}

func TestPipeline_RunMerge_RequiresCheckpoint(t *testing.T) {
	store := &memStore{records: []domain.RawTeamRecord{member(1, "Ann", "Seattle", "US")}}

	_, _, err := newPipeline(store, newGeocoder()).RunMerge(context.Background())
	require.ErrorIs(t, err, pipeline.ErrNoCheckpoint)
	assert.Nil(t, store.dataset)
}

func TestPipeline_Extract(t *testing.T) {
	store := &memStore{records: []domain.RawTeamRecord{
		member(1, "Ann", "Berlin", "DE"),
		member(2, "Ben", "Remote", ""),
	}}

	entries, err := newPipeline(store, newGeocoder()).Extract()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Problematic)
	assert.Equal(t, "Berlin, DE", entries[1].Query)
}

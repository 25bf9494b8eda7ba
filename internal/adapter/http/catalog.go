package http

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
)

// DatasetSource loads the merged team dataset.
type DatasetSource interface {
	LoadDataset() (*domain.Dataset, error)
}

// ProfileSource loads the applicant profile.
type ProfileSource interface {
	LoadProfile() (*domain.ApplicantProfile, error)
}

// Catalog is the server's read-only view of the artifacts. Each artifact is
// loaded at most once, on first access, and the outcome (including a load
// error) is kept for the life of the process. Safe for concurrent use.
type Catalog struct {
	datasets DatasetSource
	profiles ProfileSource
	metrics  *observability.Metrics
	logger   *slog.Logger

	teamOnce sync.Once
	dataset  *domain.Dataset
	byID     map[int64]int
	teamErr  error

	profileOnce sync.Once
	profile     *domain.ApplicantProfile
	profileErr  error
}

// NewCatalog creates a Catalog. Nothing is read until the first accessor call.
func NewCatalog(datasets DatasetSource, profiles ProfileSource, metrics *observability.Metrics, logger *slog.Logger) *Catalog {
	return &Catalog{
		datasets: datasets,
		profiles: profiles,
		metrics:  metrics,
		logger:   logger,
	}
}

// Team returns the full dataset.
func (c *Catalog) Team() (*domain.Dataset, error) {
	c.teamOnce.Do(c.loadTeam)
	return c.dataset, c.teamErr
}

// Member returns the member with the given id, or domain.ErrMemberNotFound.
func (c *Catalog) Member(id int64) (domain.EnrichedMember, error) {
	ds, err := c.Team()
	if err != nil {
		return domain.EnrichedMember{}, err
	}
	i, ok := c.byID[id]
	if !ok {
		return domain.EnrichedMember{}, fmt.Errorf("member %d: %w", id, domain.ErrMemberNotFound)
	}
	return ds.Team[i], nil
}

// Profile returns the applicant profile.
func (c *Catalog) Profile() (*domain.ApplicantProfile, error) {
	c.profileOnce.Do(c.loadProfile)
	return c.profile, c.profileErr
}

// CheckReadiness reports whether the team dataset is available.
func (c *Catalog) CheckReadiness(_ context.Context) error {
	_, err := c.Team()
	return err
}

func (c *Catalog) loadTeam() {
	ds, err := c.datasets.LoadDataset()
	if err != nil {
		c.teamErr = err
		c.metrics.DatasetLoads.WithLabelValues("team", "error").Inc()
		c.logger.Error("team dataset load failed", "error", err)
		return
	}

	// First occurrence wins if ids repeat.
	c.byID = make(map[int64]int, len(ds.Team))
	for i, m := range ds.Team {
		if _, dup := c.byID[m.ID]; !dup {
			c.byID[m.ID] = i
		}
	}
	c.dataset = ds
	c.metrics.DatasetLoads.WithLabelValues("team", "success").Inc()
	c.logger.Info("team dataset loaded", "members", len(ds.Team), "data_version", ds.Metadata.DataVersion)
}

func (c *Catalog) loadProfile() {
	p, err := c.profiles.LoadProfile()
	if err != nil {
		c.profileErr = err
		c.metrics.DatasetLoads.WithLabelValues("applicant", "error").Inc()
		c.logger.Error("applicant profile load failed", "error", err)
		return
	}
	c.profile = p
	c.metrics.DatasetLoads.WithLabelValues("applicant", "success").Inc()
	c.logger.Info("applicant profile loaded", "locations", len(p.Locations))
}

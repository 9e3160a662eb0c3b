// Package ingest turns plate candidates into cached vehicle records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/technopolitica/open-registry/internal/domain"
	"github.com/technopolitica/open-registry/internal/registry"
	"go.uber.org/zap"
)

// Fetcher looks a plate up in the vehicle registry.
type Fetcher interface {
	Fetch(ctx context.Context, plate string) (registry.RawVehicleDocument, error)
}

// Store is the subset of the vehicle store the pipeline needs.
type Store interface {
	Get(ctx context.Context, plate string) (domain.VehicleRecord, error)
	Put(ctx context.Context, vehicle domain.VehicleRecord) (domain.VehicleRecord, error)
}

// Pipeline validates a candidate plate, serves it from the store when cached
// and otherwise fetches, maps and stores it.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	metrics *Metrics
	log     *zap.Logger
}

func NewPipeline(fetcher Fetcher, store Store, metrics *Metrics, log *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		metrics: metrics,
		log:     log.Named("ingest"),
	}
}

// Ingest returns the record for candidate. Records are fetched from the
// registry at most once per plate: a cached record is returned as is, and a
// concurrent ingest that loses the race to store the record returns the
// winner's.
func (p *Pipeline) Ingest(ctx context.Context, candidate string) (domain.VehicleRecord, error) {
	vehicle, _, err := p.IngestWithOutcome(ctx, candidate)
	return vehicle, err
}

func (p *Pipeline) IngestWithOutcome(ctx context.Context, candidate string) (vehicle domain.VehicleRecord, outcome Outcome, err error) {
	start := time.Now()
	vehicle, outcome, err = p.ingest(ctx, candidate)
	if err != nil {
		outcome = ClassifyError(err)
	}
	p.metrics.observeOutcome(outcome, time.Since(start))

	log := p.log.With(zap.String("candidate", candidate), zap.Stringer("outcome", outcome))
	switch {
	case err == nil:
		log.Info("ingested vehicle", zap.String("plate", vehicle.Plate))
	case outcome == OutcomeInvalidPlate || outcome == OutcomeMappingError:
		log.Warn("rejected vehicle", zap.Error(err))
	default:
		log.Error("failed to ingest vehicle", zap.Error(err))
	}
	return
}

func (p *Pipeline) ingest(ctx context.Context, candidate string) (vehicle domain.VehicleRecord, outcome Outcome, err error) {
	plate, err := domain.NormalizePlate(candidate)
	if err != nil {
		return
	}

	vehicle, err = p.store.Get(ctx, plate)
	if err == nil {
		outcome = OutcomeCached
		return
	}
	if !errors.Is(err, domain.ErrVehicleNotFound) {
		err = fmt.Errorf("failed to look up %s: %w", plate, err)
		return
	}

	fetchStart := time.Now()
	doc, err := p.fetcher.Fetch(ctx, plate)
	p.metrics.observeRegistryFetch(time.Since(fetchStart))
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamUnavailable) && !errors.Is(err, domain.ErrMapping) {
			err = &domain.UpstreamError{Err: err}
		}
		err = fmt.Errorf("failed to fetch %s: %w", plate, err)
		return
	}

	vehicle, err = registry.MapVehicle(doc)
	if err != nil {
		err = fmt.Errorf("failed to map %s: %w", plate, err)
		return
	}
	if vehicle.Plate != plate {
		err = fmt.Errorf("failed to map %s: %w", plate, &domain.MappingError{
			Path:   registry.PathPlate,
			Reason: fmt.Sprintf("registry returned vehicle %s", vehicle.Plate),
		})
		return
	}

	stored, err := p.store.Put(ctx, vehicle)
	switch {
	case err == nil:
		vehicle, outcome = stored, OutcomeFetched
	case errors.Is(err, domain.ErrDuplicateKey):
		p.log.Debug("lost race to store vehicle, re-reading", zap.String("plate", plate))
		vehicle, err = p.store.Get(ctx, plate)
		if err != nil {
			err = fmt.Errorf("failed to re-read %s: %w", plate, err)
			return
		}
		outcome = OutcomeReadRepaired
	default:
		err = fmt.Errorf("failed to store %s: %w", plate, err)
	}
	return
}

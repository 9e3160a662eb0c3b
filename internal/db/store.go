package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/technopolitica/open-registry/internal/domain"
	"go.uber.org/zap"
)

// VehicleStore caches vehicle records in the car table. Every operation holds
// exactly one pooled connection for its duration, so the store is safe for
// concurrent use.
type VehicleStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewVehicleStore(pool *pgxpool.Pool, log *zap.Logger) *VehicleStore {
	return &VehicleStore{pool: pool, log: log.Named("store")}
}

// Connect opens a pool for connectionURL and verifies it can reach the server.
func Connect(ctx context.Context, connectionURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return pool, nil
}

func (s *VehicleStore) withRepository(ctx context.Context, op func(Repository) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		s.log.Error("failed to acquire connection", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	defer conn.Release()
	return classify(op(NewRepository(conn)))
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return domain.ErrVehicleNotFound
	case errors.Is(err, ErrConflict):
		return domain.ErrDuplicateKey
	case errors.Is(err, ErrOutOfRange):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
}

// EnsureSchema brings the car table up to date. It is idempotent and upgrades
// tables created by earlier versions in place.
func (s *VehicleStore) EnsureSchema(ctx context.Context) error {
	err := EnsureSchema(ctx, s.pool)
	if err != nil {
		s.log.Error("failed to ensure schema", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *VehicleStore) Get(ctx context.Context, plate string) (vehicle domain.VehicleRecord, err error) {
	err = s.withRepository(ctx, func(repo Repository) (err error) {
		vehicle, err = repo.FetchVehicle(ctx, plate)
		return
	})
	return
}

// Put inserts vehicle and returns the stored record. A record for the same
// plate is never overwritten: the second writer gets domain.ErrDuplicateKey.
// Integer fields beyond the 32-bit column range fail with ErrOutOfRange and
// nothing is stored.
func (s *VehicleStore) Put(ctx context.Context, vehicle domain.VehicleRecord) (stored domain.VehicleRecord, err error) {
	err = s.withRepository(ctx, func(repo Repository) (err error) {
		stored, err = repo.InsertVehicle(ctx, vehicle)
		return
	})
	if err == nil {
		s.log.Debug("stored vehicle", zap.String("plate", stored.Plate))
	}
	return
}

func (s *VehicleStore) List(ctx context.Context, params domain.ListVehiclesParams) (page domain.Page[domain.VehicleRecord], err error) {
	err = s.withRepository(ctx, func(repo Repository) (err error) {
		page, err = repo.ListVehicles(ctx, params)
		return
	})
	return
}

func (s *VehicleStore) Columns(ctx context.Context) (columns map[string]string, err error) {
	err = s.withRepository(ctx, func(repo Repository) (err error) {
		columns, err = repo.Columns(ctx)
		return
	})
	return
}

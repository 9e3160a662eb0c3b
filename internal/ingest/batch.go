package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/technopolitica/open-registry/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recognizer reads a plate candidate from an image. found is false when the
// image shows no plate.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (candidate string, found bool, err error)
}

type Ingester interface {
	IngestWithOutcome(ctx context.Context, candidate string) (domain.VehicleRecord, Outcome, error)
}

// Result is what a batch run produced for one image. Vehicle is nil when the
// image yielded no stored record; Err says why unless no plate was found.
type Result struct {
	Path      string
	Candidate string
	Found     bool
	Outcome   Outcome
	Vehicle   *domain.VehicleRecord
	Err       error
}

// Batch recognizes and ingests every image in a directory.
type Batch struct {
	recognizer  Recognizer
	ingester    Ingester
	concurrency int
	metrics     *Metrics
	log         *zap.Logger
}

func NewBatch(recognizer Recognizer, ingester Ingester, concurrency int, metrics *Metrics, log *zap.Logger) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{
		recognizer:  recognizer,
		ingester:    ingester,
		concurrency: concurrency,
		metrics:     metrics,
		log:         log.Named("batch"),
	}
}

// ImagePaths lists the regular files directly inside dir in name order, with
// forward slashes as path separators.
func ImagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.ToSlash(filepath.Join(dir, entry.Name())))
	}
	sort.Strings(paths)
	return paths, nil
}

// Run processes every image in dir. A failing image never aborts the others;
// only a cancelled context or an unreadable directory fails the run. Results
// are in the order of ImagePaths.
func (b *Batch) Run(ctx context.Context, dir string) ([]Result, error) {
	paths, err := ImagePaths(dir)
	if err != nil {
		return nil, err
	}
	log := b.log.With(zap.Stringer("run_id", uuid.New()), zap.String("dir", dir))
	log.Info("starting batch", zap.Int("images", len(paths)), zap.Int("concurrency", b.concurrency))

	results := make([]Result, len(paths))
	var mu sync.Mutex
	var plates []string

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.process(ctx, path)
			b.metrics.observeBatchResult(results[i].Vehicle == nil)
			if v := results[i].Vehicle; v != nil {
				mu.Lock()
				plates = append(plates, v.Plate)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch cancelled: %w", err)
	}

	stored := domain.NewSet(plates...)
	log.Info("finished batch",
		zap.Int("images", len(paths)),
		zap.Int("vehicles", len(plates)),
		zap.Strings("plates", stored))
	return results, nil
}

func (b *Batch) process(ctx context.Context, path string) (result Result) {
	result.Path = path
	candidate, found, err := b.recognizer.Recognize(ctx, path)
	if err != nil {
		result.Err = fmt.Errorf("failed to recognize plate in %s: %w", path, err)
		b.log.Warn("failed to recognize plate", zap.String("path", path), zap.Error(err))
		return
	}
	result.Candidate, result.Found = candidate, found
	if !found {
		b.log.Info("no plate found", zap.String("path", path))
		return
	}

	vehicle, outcome, err := b.ingester.IngestWithOutcome(ctx, candidate)
	result.Outcome = outcome
	if err != nil {
		result.Err = err
		return
	}
	result.Vehicle = &vehicle
	return
}

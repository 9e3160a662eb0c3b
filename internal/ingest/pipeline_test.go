package ingest

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/technopolitica/open-registry/internal/domain"
	"github.com/technopolitica/open-registry/internal/registry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Pipeline", func() {
	var fetcher *fakeFetcher
	var store *fakeStore
	var metrics *Metrics
	var logs *observer.ObservedLogs
	var pipeline *Pipeline

	BeforeEach(func() {
		fetcher = &fakeFetcher{documents: map[string]registry.RawVehicleDocument{
			"DL12345": loadDocument("bensin.json"),
			"EL98765": loadDocument("elektrisk.json"),
		}}
		store = newFakeStore()
		metrics = NewMetrics(prometheus.NewRegistry())
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)
		pipeline = NewPipeline(fetcher, store, metrics, zap.New(core))
	})

	outcomeCount := func(outcome Outcome) float64 {
		return testutil.ToFloat64(metrics.Outcomes.WithLabelValues(outcome.String()))
	}

	It("fetches, maps and stores an unseen combustion vehicle", func(ctx context.Context) {
		vehicle, err := pipeline.Ingest(ctx, "DL 12345")
		Expect(err).NotTo(HaveOccurred())
		Expect(vehicle.Plate).To(Equal("DL12345"))
		Expect(vehicle.FuelConsumptionLitersPer10Km()).To(HaveValue(BeNumerically("~", 0.72, 1e-9)))
		Expect(vehicle.WLTPRangeKm()).To(BeNil())
		Expect(vehicle.MaximumSpeedKmh).To(HaveValue(Equal(204)))
		Expect(vehicle.CreatedAt).NotTo(BeZero())

		Expect(fetcher.Calls()).To(Equal([]string{"DL12345"}))
		Expect(store.Get(ctx, "DL12345")).To(Equal(vehicle))
		Expect(outcomeCount(OutcomeFetched)).To(Equal(1.0))
	})

	It("stores an electric vehicle with its WLTP range", func(ctx context.Context) {
		vehicle, err := pipeline.Ingest(ctx, "EL98765")
		Expect(err).NotTo(HaveOccurred())
		Expect(vehicle.WLTPRangeKm()).To(HaveValue(Equal(420)))
		Expect(vehicle.FuelConsumptionLitersPer10Km()).To(BeNil())
	})

	It("serves a second ingest from the store without calling the registry", func(ctx context.Context) {
		first, err := pipeline.Ingest(ctx, "DL12345")
		Expect(err).NotTo(HaveOccurred())

		second, outcome, err := pipeline.IngestWithOutcome(ctx, "DL-12345")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(OutcomeCached))
		Expect(second).To(Equal(first))
		Expect(fetcher.Calls()).To(HaveLen(1))
		Expect(store.Puts()).To(Equal(1))
	})

	DescribeTable("rejects invalid plates before touching any collaborator",
		func(ctx context.Context, candidate string) {
			_, outcome, err := pipeline.IngestWithOutcome(ctx, candidate)
			Expect(err).To(MatchError(domain.ErrInvalidPlateFormat))
			Expect(outcome).To(Equal(OutcomeInvalidPlate))
			Expect(fetcher.Calls()).To(BeEmpty())
			Expect(store.Puts()).To(BeZero())
		},
		Entry("lower case", "dl12345"),
		Entry("too few digits", "AB123"),
		Entry("empty", ""),
		Entry("recognizer chatter", "No plate found"),
	)

	It("reports registry failures as upstream unavailable and stores nothing", func(ctx context.Context) {
		fetcher.err = &domain.UpstreamError{StatusCode: 403, Body: "forbidden"}

		_, outcome, err := pipeline.IngestWithOutcome(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrUpstreamUnavailable))
		Expect(outcome).To(Equal(OutcomeUpstreamUnavailable))
		Expect(store.Puts()).To(BeZero())
		Expect(logs.FilterMessage("failed to ingest vehicle").Len()).To(Equal(1))
	})

	It("treats unclassified fetcher errors as upstream unavailable", func(ctx context.Context) {
		fetcher.err = errors.New("connection reset")

		_, err := pipeline.Ingest(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrUpstreamUnavailable))
		Expect(err).To(MatchError(ContainSubstring("connection reset")))
	})

	It("reports a document without technical data as a mapping error and stores nothing", func(ctx context.Context) {
		doc := loadDocument("bensin.json")
		doc.VehicleDataList[0].Approval.TechnicalApproval.TechnicalData = nil
		fetcher.documents["DL12345"] = doc

		_, outcome, err := pipeline.IngestWithOutcome(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrMapping))
		Expect(outcome).To(Equal(OutcomeMappingError))
		path, ok := registry.PathOf(err)
		Expect(ok).To(BeTrue())
		Expect(path).To(HaveSuffix("tekniskeData"))
		Expect(store.Puts()).To(BeZero())
		Expect(outcomeCount(OutcomeMappingError)).To(Equal(1.0))
	})

	It("rejects a document describing another vehicle", func(ctx context.Context) {
		fetcher.documents["AB12345"] = loadDocument("bensin.json")

		_, err := pipeline.Ingest(ctx, "AB12345")
		Expect(err).To(MatchError(domain.ErrMapping))
		path, _ := registry.PathOf(err)
		Expect(path).To(Equal(registry.PathPlate))
	})

	It("reports storage failures on lookup without calling the registry", func(ctx context.Context) {
		store.getErr = domain.ErrStorageUnavailable

		_, outcome, err := pipeline.IngestWithOutcome(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrStorageUnavailable))
		Expect(outcome).To(Equal(OutcomeStorageUnavailable))
		Expect(fetcher.Calls()).To(BeEmpty())
	})

	It("reports storage failures on insert", func(ctx context.Context) {
		store.putErr = domain.ErrStorageUnavailable

		_, err := pipeline.Ingest(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrStorageUnavailable))
	})

	Describe("losing the race to store a record", func() {
		var winner domain.VehicleRecord

		BeforeEach(func() {
			winner = domain.VehicleRecord{Plate: "DL12345", Brand: ptr("WINNER")}
			store.beforePut = func() { store.insert(winner) }
		})

		It("returns the stored record instead of failing", func(ctx context.Context) {
			vehicle, outcome, err := pipeline.IngestWithOutcome(ctx, "DL12345")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(OutcomeReadRepaired))
			Expect(vehicle).To(Equal(winner))
			Expect(outcomeCount(OutcomeReadRepaired)).To(Equal(1.0))
		})
	})

	It("converges concurrent ingests of one plate on a single record", func(ctx context.Context) {
		const workers = 10
		vehicles := make([]domain.VehicleRecord, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				var err error
				vehicles[i], err = pipeline.Ingest(ctx, "DL12345")
				Expect(err).NotTo(HaveOccurred())
			}(i)
		}
		wg.Wait()

		for _, vehicle := range vehicles {
			Expect(vehicle).To(Equal(vehicles[0]))
		}
		Expect(store.Get(ctx, "DL12345")).To(Equal(vehicles[0]))
	})
})

func ptr[T any](v T) *T {
	return &v
}

var _ = Describe("ClassifyError", func() {
	DescribeTable("maps errors to outcomes",
		func(err error, expected Outcome) {
			Expect(ClassifyError(err)).To(Equal(expected))
			Expect(expected.Failed()).To(BeTrue())
		},
		Entry("invalid plate", domain.ErrInvalidPlateFormat, OutcomeInvalidPlate),
		Entry("mapping", &domain.MappingError{Path: "$", Reason: "x"}, OutcomeMappingError),
		Entry("upstream", &domain.UpstreamError{StatusCode: 500}, OutcomeUpstreamUnavailable),
		Entry("storage", domain.ErrStorageUnavailable, OutcomeStorageUnavailable),
		Entry("anything else", errors.New("boom"), OutcomeUnknownError),
	)

	It("names outcomes for metric labels", func() {
		Expect(OutcomeReadRepaired.String()).To(Equal("read_repaired"))
		Expect(OutcomeCached.Failed()).To(BeFalse())
	})
})

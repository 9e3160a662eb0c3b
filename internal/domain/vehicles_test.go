package domain

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func ptr[T any](v T) *T {
	return &v
}

var _ = Describe("VehicleRecord", func() {
	Describe("fuel variant", func() {
		It("exposes only the consumption of a combustion vehicle", func() {
			v := VehicleRecord{Fuel: Combustion{LitersPer10Km: 0.65}}
			Expect(v.FuelConsumptionLitersPer10Km()).To(HaveValue(Equal(0.65)))
			Expect(v.WLTPRangeKm()).To(BeNil())
		})

		It("exposes only the range of an electric vehicle", func() {
			v := VehicleRecord{Fuel: Electric{WLTPRangeKm: 420}}
			Expect(v.WLTPRangeKm()).To(HaveValue(Equal(420)))
			Expect(v.FuelConsumptionLitersPer10Km()).To(BeNil())
		})

		It("exposes neither when fuel data is unknown", func() {
			v := VehicleRecord{}
			Expect(v.WLTPRangeKm()).To(BeNil())
			Expect(v.FuelConsumptionLitersPer10Km()).To(BeNil())
		})
	})

	Describe("FuelVariantOf", func() {
		It("rebuilds each case from flattened columns", func() {
			Expect(FuelVariantOf(ptr(0.72), nil)).To(Equal(Combustion{LitersPer10Km: 0.72}))
			Expect(FuelVariantOf(nil, ptr(420))).To(Equal(Electric{WLTPRangeKm: 420}))
			Expect(FuelVariantOf(nil, nil)).To(BeNil())
		})

		It("refuses both columns being set", func() {
			_, err := FuelVariantOf(ptr(0.72), ptr(420))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("JSON", func() {
		It("flattens the fuel variant", func() {
			v := VehicleRecord{
				Plate:           "EL12345",
				Fuel:            Electric{WLTPRangeKm: 420},
				MaximumSpeedKmh: ptr(160),
				Dimensions:      Dimensions{Width: ptr(1850)},
			}
			data, err := json.Marshal(v)
			Expect(err).NotTo(HaveOccurred())

			var fields map[string]any
			Expect(json.Unmarshal(data, &fields)).To(Succeed())
			Expect(fields).To(HaveKeyWithValue("plate", "EL12345"))
			Expect(fields).To(HaveKeyWithValue("wltp_range_km", BeNumerically("==", 420)))
			Expect(fields).To(HaveKeyWithValue("fuel_consumption_l_per_10km", BeNil()))
			Expect(fields).To(HaveKeyWithValue("maximum_speed_kmh", BeNumerically("==", 160)))
			Expect(fields).To(HaveKeyWithValue("dimensions", Equal(map[string]any{"width": float64(1850)})))
		})

		It("reads back what it writes", func() {
			registered := time.Date(2021, time.June, 1, 8, 0, 0, 0, time.UTC)
			v := VehicleRecord{
				Plate:                   "DL12345",
				FirstRegisteredInNorway: ptr(NewDate(2021, time.June, 1)),
				Brand:                   ptr("VOLKSWAGEN"),
				FuelType:                ptr("Bensin"),
				Fuel:                    Combustion{LitersPer10Km: 0.72},
				OwnerRegistrationStart:  &registered,
			}
			data, err := json.Marshal(v)
			Expect(err).NotTo(HaveOccurred())

			var output VehicleRecord
			Expect(json.Unmarshal(data, &output)).To(Succeed())
			Expect(output.Plate).To(Equal(v.Plate))
			Expect(output.FirstRegisteredInNorway).To(Equal(v.FirstRegisteredInNorway))
			Expect(output.Brand).To(Equal(v.Brand))
			Expect(output.Fuel).To(Equal(v.Fuel))
			Expect(output.OwnerRegistrationStart).To(HaveValue(BeTemporally("==", registered)))
		})

		It("refuses records claiming both fuel variants", func() {
			var output VehicleRecord
			err := json.Unmarshal([]byte(`{"plate": "DL12345", "fuel_consumption_l_per_10km": 0.5, "wltp_range_km": 300}`), &output)
			Expect(err).To(HaveOccurred())
		})
	})
})

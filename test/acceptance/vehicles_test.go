package acceptance

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	. "github.com/onsi/gomega/gstruct"
	"github.com/technopolitica/open-registry/internal/domain"
	. "github.com/technopolitica/open-registry/test/matchers"
	"github.com/technopolitica/open-registry/test/testutils"
)

const lookupPath = "/enkeltoppslag/kjoretoydata"

func readJSONBody[T any](res *http.Response) (output T) {
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, &output)).To(Succeed(), string(data))
	return
}

func loadFixture(name string) []byte {
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "registry", "testdata", name))
	Expect(err).NotTo(HaveOccurred())
	return data
}

func registryServes(plate string, fixture string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodGet, lookupPath, "kjennemerke="+plate),
		ghttp.VerifyHeaderKV("SVV-Authorization", "Apikey "+registryAPIKey),
		ghttp.RespondWith(http.StatusOK, loadFixture(fixture)),
	)
}

var _ = Describe("/vehicles", func() {
	Context("unauthenticated", func() {
		It("rejects lookups without touching the registry", func() {
			res := apiClient.GetVehicle("DL12345")
			Expect(res).To(HaveHTTPStatus(http.StatusUnauthorized))
			Expect(res).To(HaveHTTPHeaderWithValue("WWW-Authenticate", `Bearer, charset="UTF-8"`))
			Expect(registryServer.ReceivedRequests()).To(BeEmpty())
		})

		It("rejects unsigned tokens", func() {
			apiClient.AuthenticateWithUnsignedJWT()
			Expect(apiClient.ListVehicles(testutils.ListVehiclesOptions{})).To(HaveHTTPStatus(http.StatusUnauthorized))
		})

		It("still answers health checks and exposes metrics", func() {
			res, err := http.Get(apiClient.Endpoint("/health").String())
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(HaveHTTPStatus(http.StatusOK))

			res, err = http.Get(apiClient.Endpoint("/metrics").String())
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(HaveHTTPBody(ContainSubstring("platereg_ingest_duration_seconds")))
		})
	})

	Context("authenticated", func() {
		BeforeEach(func() {
			apiClient.AuthenticateAs("operator")
		})

		Describe("GET /vehicles/{plate}", Ordered, func() {
			BeforeAll(func() {
				registryServer.AppendHandlers(registryServes("DL12345", "bensin.json"))
			})

			It("fetches an unknown plate from the registry and stores it", func() {
				res := apiClient.GetVehicle("DL 12345")
				Expect(res).To(HaveHTTPStatus(http.StatusOK))
				Expect(res).To(HaveHTTPHeaderWithValue("X-Ingest-Outcome", "fetched"))

				vehicle := readJSONBody[domain.VehicleRecord](res)
				Expect(vehicle).To(MatchFields(IgnoreExtras, Fields{
					"Plate":     Equal("DL12345"),
					"Brand":     PointTo(Equal("VOLKSWAGEN")),
					"ModelName": PointTo(Equal("GOLF")),
					"Fuel":      BeAssignableToTypeOf(domain.Combustion{}),
					"CreatedAt": Not(BeZero()),
				}))
				Expect(vehicle.FuelConsumptionLitersPer10Km()).To(PointTo(BeNumerically("~", 0.72, 1e-9)))
				Expect(registryServer.ReceivedRequests()).To(HaveLen(1))
			})

			It("serves the same plate from the cache afterwards", func() {
				res := apiClient.GetVehicle("DL12345")
				Expect(res).To(HaveHTTPStatus(http.StatusOK))
				Expect(res).To(HaveHTTPHeaderWithValue("X-Ingest-Outcome", "cached"))
				Expect(readJSONBody[domain.VehicleRecord](res).Plate).To(Equal("DL12345"))
				Expect(registryServer.ReceivedRequests()).To(HaveLen(1))
			})
		})

		It("maps electric vehicles to their WLTP range", func() {
			registryServer.AppendHandlers(registryServes("EL98765", "elektrisk.json"))

			res := apiClient.GetVehicle("EL98765")
			Expect(res).To(HaveHTTPStatus(http.StatusOK))
			Expect(res).To(HaveJSONObject(MatchKeys(IgnoreExtras, Keys{
				"plate":                       Equal("EL98765"),
				"wltp_range_km":               Equal(JSONValue(420)),
				"fuel_consumption_l_per_10km": BeNil(),
			})))
		})

		It("rejects malformed plates without calling the registry", func() {
			res := apiClient.GetVehicle("NOTAPLATE")
			Expect(res).To(HaveHTTPStatus(http.StatusBadRequest))
			Expect(readJSONBody[domain.ApiError](res).Type).To(Equal(domain.ApiErrorTypeBadParam))
			Expect(registryServer.ReceivedRequests()).To(BeEmpty())
		})

		It("reports registry failures as a bad gateway and caches nothing", func() {
			registryServer.AppendHandlers(ghttp.RespondWith(http.StatusServiceUnavailable, "down for maintenance"))

			res := apiClient.GetVehicle("DL12345")
			Expect(res).To(HaveHTTPStatus(http.StatusBadGateway))
			Expect(readJSONBody[domain.ApiError](res).Type).To(Equal(domain.ApiErrorTypeUpstreamUnavailable))

			page := readJSONBody[domain.PaginatedVehiclesResponse](apiClient.ListVehicles(testutils.ListVehiclesOptions{}))
			Expect(page.Total).To(BeZero())
		})

		It("reports unmappable registry documents as unprocessable", func() {
			registryServer.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"kjoretoydataListe": []}`))

			res := apiClient.GetVehicle("DL12345")
			Expect(res).To(HaveHTTPStatus(http.StatusUnprocessableEntity))
			Expect(readJSONBody[domain.ApiError](res).Type).To(Equal(domain.ApiErrorTypeUnmappableRecord))
		})

		Describe("POST /vehicles", func() {
			It("ingests every valid plate and reports the rest as failures", func() {
				registryServer.AppendHandlers(registryServes("DL12345", "bensin.json"))

				res := apiClient.IngestVehicles([]string{"DL12345", "bogus"})
				Expect(res).To(HaveHTTPStatus(http.StatusOK))

				body := readJSONBody[domain.BulkApiResponse[string, domain.VehicleRecord]](res)
				Expect(body.Total).To(Equal(2))
				Expect(body.Success).To(Equal(1))
				Expect(body.Items).To(ConsistOf(HaveField("Plate", "DL12345")))
				Expect(body.Failures).To(ConsistOf(MatchFields(IgnoreExtras, Fields{
					"Item":     Equal("bogus"),
					"ApiError": HaveField("Type", domain.ApiErrorTypeBadParam),
				})))
			})

			It("returns 400 when no plate is valid", func() {
				Expect(apiClient.IngestVehicles([]string{"bogus"})).To(HaveHTTPStatus(http.StatusBadRequest))
				Expect(registryServer.ReceivedRequests()).To(BeEmpty())
			})
		})

		Describe("GET /vehicles", func() {
			BeforeEach(func() {
				registryServer.AppendHandlers(
					registryServes("DL12345", "bensin.json"),
					registryServes("EL98765", "elektrisk.json"),
				)
				res := apiClient.IngestVehicles([]string{"DL12345", "EL98765"})
				Expect(res).To(HaveHTTPStatus(http.StatusOK))
				res.Body.Close()
			})

			It("pages through the cached vehicles", func() {
				first := readJSONBody[domain.PaginatedVehiclesResponse](apiClient.ListVehicles(testutils.ListVehiclesOptions{Limit: 1}))
				Expect(first.Total).To(BeEquivalentTo(2))
				Expect(first.Vehicles).To(HaveLen(1))
				Expect(first.Links.Next).NotTo(BeEmpty())
				Expect(first.Links.Prev).To(BeEmpty())

				last := readJSONBody[domain.PaginatedVehiclesResponse](apiClient.Get(first.Links.Last))
				Expect(last.Vehicles).To(HaveLen(1))
				Expect(last.Links.Next).To(BeEmpty())
				Expect(last.Vehicles[0].Plate).NotTo(Equal(first.Vehicles[0].Plate))
			})
		})
	})
})

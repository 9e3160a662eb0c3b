package registry

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/technopolitica/open-registry/internal/domain"
	"go.uber.org/zap"
)

var _ = Describe("Client", func() {
	var server *ghttp.Server
	var client *Client

	BeforeEach(func() {
		server = ghttp.NewServer()
		DeferCleanup(server.Close)

		var err error
		client, err = NewClient(ClientConfig{BaseURL: server.URL(), APIKey: "secret-key"}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an API key", func() {
		_, err := NewClient(ClientConfig{BaseURL: server.URL()}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("looks the plate up with the configured API key", func(ctx context.Context) {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodGet, "/enkeltoppslag/kjoretoydata", "kjennemerke=DL12345"),
			ghttp.VerifyHeaderKV("SVV-Authorization", "Apikey secret-key"),
			ghttp.RespondWith(http.StatusOK, loadFixture("bensin.json")),
		))

		doc, err := client.Fetch(ctx, "DL12345")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.VehicleDataList).To(HaveLen(1))
		Expect(server.ReceivedRequests()).To(HaveLen(1))
	})

	It("reports non-200 responses as upstream errors with status and body", func(ctx context.Context) {
		server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, `{"feilmelding": "Ugyldig API-nøkkel"}`))

		_, err := client.Fetch(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrUpstreamUnavailable))

		var upstreamErr *domain.UpstreamError
		Expect(errors.As(err, &upstreamErr)).To(BeTrue())
		Expect(upstreamErr.StatusCode).To(Equal(http.StatusForbidden))
		Expect(upstreamErr.Body).To(ContainSubstring("Ugyldig API-nøkkel"))
	})

	It("reports transport failures as upstream errors", func(ctx context.Context) {
		server.Close()

		_, err := client.Fetch(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrUpstreamUnavailable))
	})

	It("reports undecodable bodies as mapping errors", func(ctx context.Context) {
		server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `<html>maintenance</html>`))

		_, err := client.Fetch(ctx, "DL12345")
		Expect(err).To(MatchError(domain.ErrMapping))
		Expect(err).NotTo(MatchError(domain.ErrUpstreamUnavailable))
	})
})

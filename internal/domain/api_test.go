package domain

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FailureDetails", func() {
	It("can be serialized as JSON", func() {
		Expect(json.Marshal(FailureDetails[string]{
			Item: "AB123",
			ApiError: ApiError{
				Type:    ApiErrorTypeBadParam,
				Details: []string{"details"},
			},
		})).To(MatchJSON(`
		     {
			 	"item": "AB123",
				"error": "bad_param",
				"error_description": "A validation error occurred",
				"error_details": ["details"]
		     }
		 `))
	})

	It("can be read back from JSON", func() {
		var failure FailureDetails[string]
		err := json.Unmarshal([]byte(`{"item": "DL12345", "error": "upstream_unavailable", "error_details": ["503"]}`), &failure)
		Expect(err).NotTo(HaveOccurred())
		Expect(failure.Item).To(Equal("DL12345"))
		Expect(failure.Type).To(Equal(ApiErrorTypeUpstreamUnavailable))
		Expect(failure.Details).To(ConsistOf("503"))
	})
})

var _ = Describe("ApiErrorType", func() {
	It("rejects unknown names", func() {
		var t ApiErrorType
		Expect(t.UnmarshalText([]byte("nope"))).NotTo(Succeed())
	})
})

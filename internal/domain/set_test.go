package domain

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Set", func() {
	It("marshals to an ordered JSON array", func() {
		Expect(json.Marshal(NewSet("EL12345", "AB1234"))).
			To(MatchJSON(`["AB1234", "EL12345"]`))
	})

	It("unmarshals from JSON array", func() {
		var output Set[string]
		err := json.Unmarshal([]byte(`["EL12345", "AB1234"]`), &output)
		Expect(err).NotTo(HaveOccurred())

		Expect(output).To(Equal(NewSet("EL12345", "AB1234")))
	})

	It("removes duplicates", func() {
		Expect(NewSet("AB1234", "EL12345", "AB1234")).To(Equal(
			NewSet("AB1234", "EL12345"),
		))
	})

	It("compares equal with other Sets w/ same elements regardless of ordering", func() {
		Expect(NewSet("AB1234", "EL12345")).To(Equal(
			NewSet("EL12345", "AB1234"),
		))
	})

	It("inserts new elements in order and ignores known ones", func() {
		set := NewSet("CD1234").Insert("AB1234").Insert("CD1234")
		Expect(set).To(Equal(Set[string]{"AB1234", "CD1234"}))
		Expect(set.Contains("AB1234")).To(BeTrue())
		Expect(set.Contains("EF1234")).To(BeFalse())
	})
})

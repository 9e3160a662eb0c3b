package logging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("New", func() {
	DescribeTable("accepts known levels and formats",
		func(level string, format string, enabled zapcore.Level) {
			log, err := New(level, format)
			Expect(err).NotTo(HaveOccurred())
			Expect(log.Core().Enabled(enabled)).To(BeTrue())
			Expect(log.Core().Enabled(enabled - 1)).To(BeFalse())
		},
		Entry("info json", "info", "json", zapcore.InfoLevel),
		Entry("debug console", "debug", "console", zapcore.DebugLevel),
		Entry("upper case warn", "WARN", "", zapcore.WarnLevel),
	)

	It("rejects an unknown level", func() {
		_, err := New("chatty", "json")
		Expect(err).To(MatchError(ContainSubstring("chatty")))
	})

	It("rejects an unknown format", func() {
		_, err := New("info", "xml")
		Expect(err).To(MatchError(ContainSubstring("xml")))
	})
})

var _ = Describe("MaskAPIKey", func() {
	DescribeTable("keeps only the last four characters",
		func(input string, expected string) {
			Expect(MaskAPIKey(input)).To(Equal(expected))
		},
		Entry("long key", "abcdef-123456", "****3456"),
		Entry("surrounding whitespace", "  abcdef-123456 ", "****3456"),
		Entry("short key", "abc", "****"),
		Entry("empty", "", ""),
	)

	It("never logs the raw key", func() {
		core, logs := observer.New(zapcore.InfoLevel)
		zap.New(core).Info("configured registry", APIKey("api_key", "super-secret-key"))

		Expect(logs.All()).To(HaveLen(1))
		Expect(logs.All()[0].ContextMap()).To(HaveKeyWithValue("api_key", "****-key"))
	})
})

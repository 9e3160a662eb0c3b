package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeFile(dir string, name string, content string) {
	Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)).To(Succeed())
}

var _ = Describe("Compare", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeFile(dir, "result_correct.csv", "PATH,RESULT\ncars/a.jpg,DL12345\ncars/b.jpg,EL98765\ncars/c.png,AB1234\n")
		writeFile(dir, "result_llava_20251003-140509.csv", "PATH,RESULT\ncars/a.jpg,DL12345\ncars/b.jpg,EL98766\ncars/c.png,\n")
		writeFile(dir, "result_qwen3-vl_20250901-080000.csv", "PATH,RESULT\ncars/a.jpg,DL12345\ncars/b.jpg,EL98765\ncars/c.png,AB1234\n")
		writeFile(dir, "notes.txt", "ignored")
	})

	It("scores every run in timestamp order", func() {
		comparison, err := Compare(dir, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(comparison.Images).To(Equal([]string{"cars/a.jpg", "cars/b.jpg", "cars/c.png"}))
		Expect(comparison.Runs).To(HaveExactElements(
			And(
				HaveField("Model", "qwen3-vl"),
				HaveField("Marks", Equal([]Mark{MarkCorrect, MarkCorrect, MarkCorrect})),
				WithTransform(Run.Accuracy, Equal("3/3")),
			),
			And(
				HaveField("Model", "llava"),
				HaveField("Marks", Equal([]Mark{MarkCorrect, MarkIncorrect, MarkMissing})),
				WithTransform(Run.Accuracy, Equal("1/2")),
			),
		))
	})

	It("fails without a ground truth file", func() {
		Expect(os.Remove(filepath.Join(dir, "result_correct.csv"))).To(Succeed())
		_, err := Compare(dir, "")
		Expect(err).To(MatchError(ContainSubstring("failed to open ground truth")))
	})

	It("renders an aligned table", func() {
		comparison, err := Compare(dir, "")
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(RenderTable(&buf, comparison)).To(Succeed())
		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(strings.Fields(lines[0])).To(Equal([]string{"MODEL", "TIMESTAMP", "ACCURACY", "A", "B", "C"}))
		Expect(lines[1]).To(ContainSubstring("2025-09-01 08:00:00"))
		Expect(strings.Fields(lines[2])).To(ContainElements("llava", "1/2", "✅", "❌", "N/A"))
	})
})

var _ = Describe("Score", func() {
	It("reports 0/0 when the run read nothing", func() {
		run := Score([]string{"a.jpg"}, map[string]string{"a.jpg": "DL12345"}, nil)
		Expect(run.Accuracy()).To(Equal("0/0"))
		Expect(run.Marks).To(Equal([]Mark{MarkMissing}))
	})
})

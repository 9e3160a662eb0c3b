package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

const DefaultGroundTruthFile = "result_correct.csv"

type Mark string

const (
	MarkCorrect   Mark = "✅"
	MarkIncorrect Mark = "❌"
	MarkMissing   Mark = "N/A"
)

// Run is one results file scored against the ground truth.
type Run struct {
	File      string
	Model     string
	Timestamp time.Time
	Correct   int
	Total     int
	// Marks has one entry per ground-truth image, in ground-truth order.
	Marks []Mark
}

// Accuracy is "correct/total", counting only images the run read a plate for.
func (r Run) Accuracy() string {
	return fmt.Sprintf("%d/%d", r.Correct, r.Total)
}

type Comparison struct {
	Images []string
	Runs   []Run
}

// Compare scores every result_*.csv in dir against groundTruthFile, which
// lives in the same directory. Runs are ordered by the timestamp in their
// file name; files without one sort first.
func Compare(dir string, groundTruthFile string) (comparison Comparison, err error) {
	if groundTruthFile == "" {
		groundTruthFile = DefaultGroundTruthFile
	}
	truthFile, err := os.Open(filepath.Join(dir, groundTruthFile))
	if err != nil {
		return comparison, fmt.Errorf("failed to open ground truth: %w", err)
	}
	defer truthFile.Close()
	images, truth, err := ReadGroundTruth(truthFile)
	if err != nil {
		return comparison, fmt.Errorf("%s: %w", groundTruthFile, err)
	}
	comparison.Images = images

	entries, err := os.ReadDir(dir)
	if err != nil {
		return comparison, fmt.Errorf("failed to list results: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == groundTruthFile || strings.HasPrefix(name, "result_correct") {
			continue
		}
		model, at, ok := ParseResultFileName(name)
		if !ok {
			continue
		}
		var run Run
		run, err = scoreFile(filepath.Join(dir, name), images, truth)
		if err != nil {
			return comparison, fmt.Errorf("%s: %w", name, err)
		}
		run.File, run.Model, run.Timestamp = name, model, at
		comparison.Runs = append(comparison.Runs, run)
	}
	sort.SliceStable(comparison.Runs, func(i, j int) bool {
		a, b := comparison.Runs[i], comparison.Runs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.File < b.File
	})
	return comparison, nil
}

func scoreFile(path string, images []string, truth map[string]string) (run Run, err error) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()
	predictions, err := ReadResults(file)
	if err != nil {
		return
	}
	run = Score(images, truth, predictions)
	return
}

// Score marks each image. Images without a prediction are MarkMissing and do
// not count towards the total.
func Score(images []string, truth map[string]string, predictions map[string]string) (run Run) {
	run.Marks = make([]Mark, 0, len(images))
	for _, image := range images {
		prediction := predictions[image]
		if prediction == "" {
			run.Marks = append(run.Marks, MarkMissing)
			continue
		}
		run.Total++
		if prediction == truth[image] {
			run.Correct++
			run.Marks = append(run.Marks, MarkCorrect)
		} else {
			run.Marks = append(run.Marks, MarkIncorrect)
		}
	}
	return
}

// ColumnName is the upper-cased file name of an image without extension.
func ColumnName(image string) string {
	base := filepath.Base(filepath.FromSlash(image))
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// RenderTable prints one row per run: model, timestamp, accuracy and a mark
// per image.
func RenderTable(w io.Writer, comparison Comparison) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"MODEL", "TIMESTAMP", "ACCURACY"}
	for _, image := range comparison.Images {
		header = append(header, ColumnName(image))
	}
	fmt.Fprintln(table, strings.Join(header, "\t"))

	for _, run := range comparison.Runs {
		timestamp := "N/A"
		if !run.Timestamp.IsZero() {
			timestamp = run.Timestamp.Format(time.DateTime)
		}
		row := []string{run.Model, timestamp, run.Accuracy()}
		for _, mark := range run.Marks {
			row = append(row, string(mark))
		}
		fmt.Fprintln(table, strings.Join(row, "\t"))
	}
	return table.Flush()
}

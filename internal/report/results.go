// Package report writes recognition results and scores them against a
// ground-truth file.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	headerPath   = "PATH"
	headerResult = "RESULT"

	resultPrefix    = "result_"
	timestampLayout = "20060102-150405"
)

// Recognition pairs an image with the plate read from it. An empty Plate
// means no plate was read.
type Recognition struct {
	Path  string
	Plate string
}

// ResultFileName names a results file after the model and the run time.
func ResultFileName(model string, at time.Time) string {
	return fmt.Sprintf("%s%s_%s.csv", resultPrefix, model, at.Format(timestampLayout))
}

// ParseResultFileName recovers the model and run time from a results file
// name. ok is false for names that do not follow ResultFileName; a name with
// an unparseable timestamp keeps the model and a zero time.
func ParseResultFileName(name string) (model string, at time.Time, ok bool) {
	base, found := strings.CutSuffix(name, ".csv")
	if !found || !strings.HasPrefix(base, resultPrefix) {
		return "", time.Time{}, false
	}
	parts := strings.Split(strings.TrimPrefix(base, resultPrefix), "_")
	if len(parts) < 2 {
		return "UNKNOWN", time.Time{}, true
	}
	model = strings.Join(parts[:len(parts)-1], "_")
	at, err := time.ParseInLocation(timestampLayout, parts[len(parts)-1], time.Local)
	if err != nil {
		at = time.Time{}
	}
	return model, at, true
}

// WriteResults writes recognitions as a PATH,RESULT CSV.
func WriteResults(w io.Writer, recognitions []Recognition) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{headerPath, headerResult}); err != nil {
		return err
	}
	for _, r := range recognitions {
		if err := writer.Write([]string{r.Path, r.Plate}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadResults reads a PATH,RESULT CSV into a map from path to plate. Files
// without the header are read as plain two-column rows. Rows without a path
// are skipped; plates are trimmed.
func ReadResults(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	results := make(map[string]string, len(rows))
	if len(rows) == 0 {
		return results, nil
	}

	pathColumn, resultColumn := 0, 1
	if header := columnIndex(rows[0]); header != nil {
		pathColumn, resultColumn = header[headerPath], header[headerResult]
		rows = rows[1:]
	}
	for _, row := range rows {
		if len(row) <= pathColumn || len(row) <= resultColumn || row[pathColumn] == "" {
			continue
		}
		if row[pathColumn] == headerPath {
			continue
		}
		results[row[pathColumn]] = strings.TrimSpace(row[resultColumn])
	}
	return results, nil
}

func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	_, hasPath := index[headerPath]
	_, hasResult := index[headerResult]
	if !hasPath || !hasResult {
		return nil
	}
	return index
}

var ErrMissingHeader = errors.New("ground truth must have header PATH,RESULT")

// ReadGroundTruth reads the reference results. Unlike ReadResults it
// requires the header and keeps the file's row order.
func ReadGroundTruth(r io.Reader) (paths []string, plates map[string]string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read ground truth: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrMissingHeader
	}
	header := columnIndex(rows[0])
	if header == nil {
		return nil, nil, ErrMissingHeader
	}
	plates = make(map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		pathColumn, resultColumn := header[headerPath], header[headerResult]
		if len(row) <= pathColumn || row[pathColumn] == "" {
			continue
		}
		var plate string
		if len(row) > resultColumn {
			plate = strings.TrimSpace(row[resultColumn])
		}
		if _, seen := plates[row[pathColumn]]; !seen {
			paths = append(paths, row[pathColumn])
		}
		plates[row[pathColumn]] = plate
	}
	return paths, plates, nil
}

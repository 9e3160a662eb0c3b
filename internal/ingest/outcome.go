package ingest

import (
	"errors"
	"fmt"

	"github.com/technopolitica/open-registry/internal/domain"
)

// Outcome classifies how an ingestion ended.
type Outcome int

const (
	OutcomeUnknownError Outcome = iota
	OutcomeCached
	OutcomeFetched
	OutcomeReadRepaired
	OutcomeInvalidPlate
	OutcomeMappingError
	OutcomeUpstreamUnavailable
	OutcomeStorageUnavailable
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknownError:        "unknown_error",
	OutcomeCached:              "cached",
	OutcomeFetched:             "fetched",
	OutcomeReadRepaired:        "read_repaired",
	OutcomeInvalidPlate:        "invalid_plate",
	OutcomeMappingError:        "mapping_error",
	OutcomeUpstreamUnavailable: "upstream_unavailable",
	OutcomeStorageUnavailable:  "storage_unavailable",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Failed reports whether the outcome produced no record.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeCached, OutcomeFetched, OutcomeReadRepaired:
		return false
	default:
		return true
	}
}

// ClassifyError maps an ingestion error to its failure outcome.
func ClassifyError(err error) Outcome {
	switch {
	case errors.Is(err, domain.ErrInvalidPlateFormat):
		return OutcomeInvalidPlate
	case errors.Is(err, domain.ErrMapping):
		return OutcomeMappingError
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return OutcomeUpstreamUnavailable
	case errors.Is(err, domain.ErrStorageUnavailable):
		return OutcomeStorageUnavailable
	default:
		return OutcomeUnknownError
	}
}

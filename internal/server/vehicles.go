package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/technopolitica/open-registry/internal/domain"
	"github.com/technopolitica/open-registry/internal/ingest"
	"go.uber.org/zap"
)

const MAX_RESULTS_LIMIT = 20

const MAX_BULK_PLATES = 50

// OutcomeHeader tells clients whether a record was served from the cache.
const OutcomeHeader = "X-Ingest-Outcome"

type ListVehiclesParams struct {
	Limit  int
	Offset int
}

func parseListVehiclesParams(r *http.Request) (params ListVehiclesParams, errs []string) {
	var err error
	offset := r.URL.Query().Get("page[offset]")
	if offset != "" {
		params.Offset, err = strconv.Atoi(offset)
		if err != nil || params.Offset < 0 {
			errs = append(errs, "page[offset]: must be non-negative integer")
		}
	}

	limit := r.URL.Query().Get("page[limit]")
	if limit == "" {
		errs = append(errs, "page[limit]: missing required parameter")
	} else {
		params.Limit, err = strconv.Atoi(limit)
		if err != nil || params.Limit <= 0 {
			errs = append(errs, "page[limit]: must be a positive integer")
		}
		if params.Limit > MAX_RESULTS_LIMIT {
			params.Limit = MAX_RESULTS_LIMIT
			errs = append(errs, fmt.Sprintf("page[limit]: must be less than or equal to %d", MAX_RESULTS_LIMIT))
		}
	}

	return
}

// apiErrorFor translates an ingestion error into a status code and body.
func apiErrorFor(err error) (int, domain.ApiError) {
	details := []string{err.Error()}
	switch ingest.ClassifyError(err) {
	case ingest.OutcomeInvalidPlate:
		return http.StatusBadRequest, domain.ApiError{Type: domain.ApiErrorTypeBadParam, Details: details}
	case ingest.OutcomeMappingError:
		return http.StatusUnprocessableEntity, domain.ApiError{Type: domain.ApiErrorTypeUnmappableRecord, Details: details}
	case ingest.OutcomeUpstreamUnavailable:
		return http.StatusBadGateway, domain.ApiError{Type: domain.ApiErrorTypeUpstreamUnavailable, Details: details}
	case ingest.OutcomeStorageUnavailable:
		return http.StatusInternalServerError, domain.ApiError{Type: domain.ApiErrorTypeStorageUnavailable}
	default:
		return http.StatusInternalServerError, domain.ApiError{Type: domain.ApiErrorTypeUnknown, Details: []string{"An unknown error has occurred"}}
	}
}

func isServerError(status int) bool {
	return status >= http.StatusInternalServerError
}

func (env *Env) logFailure(r *http.Request, msg string, err error) {
	env.log.Warn(msg, zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
}

func NewVehiclesRouter(env *Env) *chi.Mux {
	vehiclesRouter := chi.NewRouter()
	vehiclesRouter.With(middleware.AllowContentType("application/json")).Post("/", func(w http.ResponseWriter, r *http.Request) {
		var plates []string
		err := render.DecodeJSON(r.Body, &plates)
		if err != nil {
			env.logFailure(r, "malformed plates payload", err)
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: []string{"payload must be a JSON array of plate strings"},
			})
			return
		}
		if len(plates) == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, domain.ApiError{
				Type:    domain.ApiErrorTypeMissingParam,
				Details: []string{"at least one plate is required"},
			})
			return
		}
		if len(plates) > MAX_BULK_PLATES {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: []string{fmt.Sprintf("at most %d plates may be submitted at once", MAX_BULK_PLATES)},
			})
			return
		}

		ctx := r.Context()
		nServerErrors := 0
		response := domain.BulkApiResponse[string, domain.VehicleRecord]{
			Total: len(plates),
			Items: []domain.VehicleRecord{},
		}
		for _, plate := range plates {
			vehicle, _, err := env.ingester.IngestWithOutcome(ctx, plate)
			if err != nil {
				status, apiErr := apiErrorFor(err)
				if isServerError(status) {
					nServerErrors += 1
				}
				response.Failures = append(response.Failures, domain.FailureDetails[string]{
					Item:     plate,
					ApiError: apiErr,
				})
				continue
			}
			response.Success += 1
			response.Items = append(response.Items, vehicle)
		}

		httpStatus := http.StatusOK
		// If every plate failed for server-side reasons, return a 502 so that
		// clients retry; otherwise no success means the input was at fault.
		if nServerErrors == response.Total {
			httpStatus = http.StatusBadGateway
		} else if response.Success == 0 {
			httpStatus = http.StatusBadRequest
		}
		render.Status(r, httpStatus)
		render.JSON(w, r, response)
	})
	vehiclesRouter.Get("/", func(w http.ResponseWriter, r *http.Request) {
		params, errs := parseListVehiclesParams(r)
		if len(errs) > 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, domain.ApiError{
				Type:    domain.ApiErrorTypeBadParam,
				Details: errs,
			})
			return
		}

		page, err := env.vehicles.List(r.Context(), domain.ListVehiclesParams{
			Limit:  int32(params.Limit),
			Offset: int32(params.Offset),
		})
		if err != nil {
			env.logFailure(r, "failed to list vehicles", err)
			status, apiErr := apiErrorFor(err)
			render.Status(r, status)
			render.JSON(w, r, apiErr)
			return
		}

		baseURL := domain.URL{URL: r.URL}
		first := baseURL.WithPageOffset(0)
		lastOffset := 0
		if page.Total > 0 {
			lastOffset = (int(page.Total-1) / params.Limit) * params.Limit
		}
		last := baseURL.WithPageOffset(lastOffset)
		prevOffset := params.Offset - params.Limit
		// If we get a nonsensical offset that's greater than the last offset, we'll point
		// the prev link to the last offset.
		if prevOffset > lastOffset {
			prevOffset = lastOffset
		}
		var prev domain.URL
		if prevOffset >= 0 {
			prev = baseURL.WithPageOffset(prevOffset)
		}
		nextOffset := params.Offset + params.Limit
		var next domain.URL
		if nextOffset <= lastOffset {
			next = baseURL.WithPageOffset(nextOffset)
		}

		// render.JSON escapes HTML characters, including the '&' in the links.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		err = encoder.Encode(domain.PaginatedVehiclesResponse{
			PaginatedResponse: domain.PaginatedResponse{
				Version: "1.0.0",
				Links: domain.PaginationLinks{
					First: first.String(),
					Last:  last.String(),
					Prev:  prev.String(),
					Next:  next.String(),
				},
			},
			Total:    page.Total,
			Vehicles: page.Items,
		})
		if err != nil {
			env.logFailure(r, "failed to encode vehicles page", err)
		}
	})
	vehiclesRouter.Get("/{plate}", func(w http.ResponseWriter, r *http.Request) {
		candidate := chi.URLParam(r, "plate")

		vehicle, outcome, err := env.ingester.IngestWithOutcome(r.Context(), candidate)
		if err != nil {
			status, apiErr := apiErrorFor(err)
			if isServerError(status) {
				env.logFailure(r, "failed to ingest vehicle", err)
			}
			render.Status(r, status)
			render.JSON(w, r, apiErr)
			return
		}

		w.Header().Set(OutcomeHeader, outcome.String())
		render.Status(r, http.StatusOK)
		render.JSON(w, r, vehicle)
	})
	return vehiclesRouter
}

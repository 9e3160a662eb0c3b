package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	_ "embed"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/technopolitica/open-registry/internal/domain"
)

func textFrom(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func int4From(n *int) (pgtype.Int4, error) {
	if n == nil {
		return pgtype.Int4{}, nil
	}
	if *n > math.MaxInt32 || *n < math.MinInt32 {
		return pgtype.Int4{}, fmt.Errorf("%w: %d does not fit an integer column", ErrOutOfRange, *n)
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}, nil
}

func float8From(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}

func dateFrom(d *domain.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func timestampFrom(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func stringOf(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func intOf(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func floatOf(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}

func dateOf(d pgtype.Date) *domain.Date {
	if !d.Valid {
		return nil
	}
	v := domain.DateOf(d.Time)
	return &v
}

func timestampOf(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func dtoFromVehicle(vehicle domain.VehicleRecord) (dto VehicleDTO, err error) {
	var errs []error
	int4 := func(column string, n *int) pgtype.Int4 {
		v, err := int4From(n)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", column, err))
		}
		return v
	}
	dto = VehicleDTO{
		Plate:                           vehicle.Plate,
		FirstRegisteredInNorway:         dateFrom(vehicle.FirstRegisteredInNorway),
		VehicleCategory:                 textFrom(vehicle.VehicleCategory),
		DimensionWidth:                  int4("dimension_width", vehicle.Dimensions.Width),
		DimensionHeight:                 int4("dimension_height", vehicle.Dimensions.Height),
		DimensionLength:                 int4("dimension_length", vehicle.Dimensions.Length),
		ManufacturerName:                textFrom(vehicle.ManufacturerName),
		Brand:                           textFrom(vehicle.Brand),
		ModelName:                       textFrom(vehicle.ModelName),
		DrivingSide:                     textFrom(vehicle.DrivingSide),
		ColorName:                       textFrom(vehicle.ColorName),
		ColorDescription:                textFrom(vehicle.ColorDescription),
		FuelType:                        textFrom(vehicle.FuelType),
		FuelConsumptionLiterPer10Km:     float8From(vehicle.FuelConsumptionLitersPer10Km()),
		WLTPCombinedRangeKm:             int4("wltp_combined_range_km", vehicle.WLTPRangeKm()),
		TransmissionType:                textFrom(vehicle.TransmissionType),
		MaximumSpeedKmh:                 int4("maximum_speed_kmh", vehicle.MaximumSpeedKmh),
		InspectionDueDate:               dateFrom(vehicle.InspectionDueDate),
		LastInspectionApprovedDate:      dateFrom(vehicle.LastInspectionApprovedDate),
		OwnerRegistrationStartTimestamp: timestampFrom(vehicle.OwnerRegistrationStart),
	}
	err = errors.Join(errs...)
	return
}

func vehicleFromDTO(dto VehicleDTO) (vehicle domain.VehicleRecord, err error) {
	fuel, err := domain.FuelVariantOf(floatOf(dto.FuelConsumptionLiterPer10Km), intOf(dto.WLTPCombinedRangeKm))
	if err != nil {
		err = fmt.Errorf("stored row for %s is inconsistent: %w", dto.Plate, err)
		return
	}
	vehicle = domain.VehicleRecord{
		Plate:                   dto.Plate,
		FirstRegisteredInNorway: dateOf(dto.FirstRegisteredInNorway),
		VehicleCategory:         stringOf(dto.VehicleCategory),
		Dimensions: domain.Dimensions{
			Width:  intOf(dto.DimensionWidth),
			Height: intOf(dto.DimensionHeight),
			Length: intOf(dto.DimensionLength),
		},
		ManufacturerName:           stringOf(dto.ManufacturerName),
		Brand:                      stringOf(dto.Brand),
		ModelName:                  stringOf(dto.ModelName),
		DrivingSide:                stringOf(dto.DrivingSide),
		ColorName:                  stringOf(dto.ColorName),
		ColorDescription:           stringOf(dto.ColorDescription),
		FuelType:                   stringOf(dto.FuelType),
		Fuel:                       fuel,
		TransmissionType:           stringOf(dto.TransmissionType),
		MaximumSpeedKmh:            intOf(dto.MaximumSpeedKmh),
		InspectionDueDate:          dateOf(dto.InspectionDueDate),
		LastInspectionApprovedDate: dateOf(dto.LastInspectionApprovedDate),
		OwnerRegistrationStart:     timestampOf(dto.OwnerRegistrationStartTimestamp),
	}
	// Rows cached before timestamps were tracked keep zero values.
	if created := timestampOf(dto.CreatedAt); created != nil {
		vehicle.CreatedAt = *created
	}
	if updated := timestampOf(dto.UpdatedAt); updated != nil {
		vehicle.UpdatedAt = *updated
	}
	return
}

//go:embed queries/fetch-vehicle.sql
var fetchVehicleQuery string

func (repo Repository) FetchVehicle(ctx context.Context, plate string) (vehicle domain.VehicleRecord, err error) {
	rows, err := repo.Query(ctx, fetchVehicleQuery, pgx.NamedArgs{"plate": plate})
	if err != nil {
		err = fmt.Errorf("failed to execute query: %w", err)
		return
	}

	vehicleDTOs, err := pgx.CollectRows(rows, pgx.RowToStructByName[VehicleDTO])
	if err != nil {
		err = fmt.Errorf("failed to map row to VehicleDTO: %w", err)
		return
	}
	if len(vehicleDTOs) == 0 {
		err = ErrNotFound
		return
	}

	vehicle, err = vehicleFromDTO(vehicleDTOs[0])
	return
}

//go:embed queries/list-vehicles.sql
var listVehiclesQuery string

//go:embed queries/count-vehicles.sql
var countVehiclesQuery string

func (repo Repository) ListVehicles(ctx context.Context, arg domain.ListVehiclesParams) (page domain.Page[domain.VehicleRecord], err error) {
	err = repo.WithinTransaction(ctx, func(tx pgx.Tx) (err error) {
		rows, err := tx.Query(ctx, listVehiclesQuery, pgx.NamedArgs{"limit": arg.Limit, "offset": arg.Offset})
		if err != nil {
			return
		}
		vehicleDTOs, err := pgx.CollectRows(rows, pgx.RowToStructByName[VehicleDTO])
		if err != nil {
			return
		}
		page.Items = make([]domain.VehicleRecord, 0, len(vehicleDTOs))
		for _, dto := range vehicleDTOs {
			var vehicle domain.VehicleRecord
			vehicle, err = vehicleFromDTO(dto)
			if err != nil {
				return
			}
			page.Items = append(page.Items, vehicle)
		}

		err = tx.QueryRow(ctx, countVehiclesQuery).Scan(&page.Total)
		return
	})
	return
}

//go:embed queries/insert-vehicle.sql
var insertVehicleQuery string

// InsertVehicle stores a new row and returns it as persisted, timestamps
// included. An existing row for the same plate yields ErrConflict.
func (repo Repository) InsertVehicle(ctx context.Context, vehicle domain.VehicleRecord) (stored domain.VehicleRecord, err error) {
	dto, err := dtoFromVehicle(vehicle)
	if err != nil {
		return
	}
	rows, err := repo.Query(ctx, insertVehicleQuery, pgx.NamedArgs{
		"plate":                              dto.Plate,
		"first_registered_in_norway":         dto.FirstRegisteredInNorway,
		"vehicle_category":                   dto.VehicleCategory,
		"dimension_width":                    dto.DimensionWidth,
		"dimension_height":                   dto.DimensionHeight,
		"dimension_length":                   dto.DimensionLength,
		"manufacturer_name":                  dto.ManufacturerName,
		"brand":                              dto.Brand,
		"model_name":                         dto.ModelName,
		"driving_side":                       dto.DrivingSide,
		"color_name":                         dto.ColorName,
		"color_description":                  dto.ColorDescription,
		"fuel_type":                          dto.FuelType,
		"fuel_consumption_liter_per_10km":    dto.FuelConsumptionLiterPer10Km,
		"wltp_combined_range_km":             dto.WLTPCombinedRangeKm,
		"transmission_type":                  dto.TransmissionType,
		"maximum_speed_kmh":                  dto.MaximumSpeedKmh,
		"inspection_due_date":                dto.InspectionDueDate,
		"last_inspection_approved_date":      dto.LastInspectionApprovedDate,
		"owner_registration_start_timestamp": dto.OwnerRegistrationStartTimestamp,
	})
	if err == nil {
		var storedDTOs []VehicleDTO
		storedDTOs, err = pgx.CollectRows(rows, pgx.RowToStructByName[VehicleDTO])
		if err == nil && len(storedDTOs) == 1 {
			return vehicleFromDTO(storedDTOs[0])
		}
		if err == nil {
			err = fmt.Errorf("insert returned %d rows", len(storedDTOs))
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		err = ErrConflict
	}
	return
}

//go:embed queries/table-columns.sql
var tableColumnsQuery string

// Columns maps each column of the car table to its SQL data type.
func (repo Repository) Columns(ctx context.Context) (columns map[string]string, err error) {
	rows, err := repo.Query(ctx, tableColumnsQuery)
	if err != nil {
		err = fmt.Errorf("failed to execute query: %w", err)
		return
	}
	columnDTOs, err := pgx.CollectRows(rows, pgx.RowToStructByName[ColumnDTO])
	if err != nil {
		return
	}
	columns = make(map[string]string, len(columnDTOs))
	for _, column := range columnDTOs {
		columns[column.Name] = column.DataType
	}
	return
}

package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// VehicleDTO is one row of the car table. Dimensions and the fuel variant are
// flattened into nullable columns.
type VehicleDTO struct {
	Plate                           string             `db:"plate"`
	FirstRegisteredInNorway         pgtype.Date        `db:"first_registered_in_norway"`
	VehicleCategory                 pgtype.Text        `db:"vehicle_category"`
	DimensionWidth                  pgtype.Int4        `db:"dimension_width"`
	DimensionHeight                 pgtype.Int4        `db:"dimension_height"`
	DimensionLength                 pgtype.Int4        `db:"dimension_length"`
	ManufacturerName                pgtype.Text        `db:"manufacturer_name"`
	Brand                           pgtype.Text        `db:"brand"`
	ModelName                       pgtype.Text        `db:"model_name"`
	DrivingSide                     pgtype.Text        `db:"driving_side"`
	ColorName                       pgtype.Text        `db:"color_name"`
	ColorDescription                pgtype.Text        `db:"color_description"`
	FuelType                        pgtype.Text        `db:"fuel_type"`
	FuelConsumptionLiterPer10Km     pgtype.Float8      `db:"fuel_consumption_liter_per_10km"`
	WLTPCombinedRangeKm             pgtype.Int4        `db:"wltp_combined_range_km"`
	TransmissionType                pgtype.Text        `db:"transmission_type"`
	MaximumSpeedKmh                 pgtype.Int4        `db:"maximum_speed_kmh"`
	InspectionDueDate               pgtype.Date        `db:"inspection_due_date"`
	LastInspectionApprovedDate      pgtype.Date        `db:"last_inspection_approved_date"`
	OwnerRegistrationStartTimestamp pgtype.Timestamptz `db:"owner_registration_start_timestamp"`
	CreatedAt                       pgtype.Timestamptz `db:"created_at"`
	UpdatedAt                       pgtype.Timestamptz `db:"updated_at"`
}

type ColumnDTO struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
}

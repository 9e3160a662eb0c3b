package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Dimensions are in millimetres.
type Dimensions struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
	Length *int `json:"length,omitempty"`
}

// FuelVariant is either Combustion or Electric. A nil FuelVariant means the
// registry had no usable fuel data for the vehicle.
type FuelVariant interface {
	fuelVariant()
}

// Combustion holds blended fuel consumption normalized to litres per 10 km.
type Combustion struct {
	LitersPer10Km float64
}

// Electric holds the WLTP combined range.
type Electric struct {
	WLTPRangeKm int
}

func (Combustion) fuelVariant() {}
func (Electric) fuelVariant()   {}

type VehicleRecord struct {
	Plate                      string
	FirstRegisteredInNorway    *Date
	VehicleCategory            *string
	Dimensions                 Dimensions
	ManufacturerName           *string
	Brand                      *string
	ModelName                  *string
	DrivingSide                *string
	ColorName                  *string
	ColorDescription           *string
	FuelType                   *string
	Fuel                       FuelVariant
	TransmissionType           *string
	MaximumSpeedKmh            *int
	InspectionDueDate          *Date
	LastInspectionApprovedDate *Date
	OwnerRegistrationStart     *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

func (v VehicleRecord) FuelConsumptionLitersPer10Km() *float64 {
	if c, ok := v.Fuel.(Combustion); ok {
		return &c.LitersPer10Km
	}
	return nil
}

func (v VehicleRecord) WLTPRangeKm() *int {
	if e, ok := v.Fuel.(Electric); ok {
		return &e.WLTPRangeKm
	}
	return nil
}

// FuelVariantOf rebuilds the variant from its two flattened columns. Both
// being set violates the record invariant.
func FuelVariantOf(litersPer10Km *float64, wltpRangeKm *int) (FuelVariant, error) {
	switch {
	case litersPer10Km != nil && wltpRangeKm != nil:
		return nil, fmt.Errorf("both fuel consumption and WLTP range are set")
	case litersPer10Km != nil:
		return Combustion{LitersPer10Km: *litersPer10Km}, nil
	case wltpRangeKm != nil:
		return Electric{WLTPRangeKm: *wltpRangeKm}, nil
	default:
		return nil, nil
	}
}

type vehicleRecordJSON struct {
	Plate                      string     `json:"plate"`
	FirstRegisteredInNorway    *Date      `json:"first_registered_in_norway"`
	VehicleCategory            *string    `json:"vehicle_category"`
	Dimensions                 Dimensions `json:"dimensions"`
	ManufacturerName           *string    `json:"manufacturer_name"`
	Brand                      *string    `json:"brand"`
	ModelName                  *string    `json:"model_name"`
	DrivingSide                *string    `json:"driving_side"`
	ColorName                  *string    `json:"color_name"`
	ColorDescription           *string    `json:"color_description"`
	FuelType                   *string    `json:"fuel_type"`
	FuelConsumptionLPer10Km    *float64   `json:"fuel_consumption_l_per_10km"`
	WLTPRangeKm                *int       `json:"wltp_range_km"`
	TransmissionType           *string    `json:"transmission_type"`
	MaximumSpeedKmh            *int       `json:"maximum_speed_kmh"`
	InspectionDueDate          *Date      `json:"inspection_due_date"`
	LastInspectionApprovedDate *Date      `json:"last_inspection_approved_date"`
	OwnerRegistrationStart     *time.Time `json:"owner_registration_start_timestamp"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

func (v VehicleRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(vehicleRecordJSON{
		Plate:                      v.Plate,
		FirstRegisteredInNorway:    v.FirstRegisteredInNorway,
		VehicleCategory:            v.VehicleCategory,
		Dimensions:                 v.Dimensions,
		ManufacturerName:           v.ManufacturerName,
		Brand:                      v.Brand,
		ModelName:                  v.ModelName,
		DrivingSide:                v.DrivingSide,
		ColorName:                  v.ColorName,
		ColorDescription:           v.ColorDescription,
		FuelType:                   v.FuelType,
		FuelConsumptionLPer10Km:    v.FuelConsumptionLitersPer10Km(),
		WLTPRangeKm:                v.WLTPRangeKm(),
		TransmissionType:           v.TransmissionType,
		MaximumSpeedKmh:            v.MaximumSpeedKmh,
		InspectionDueDate:          v.InspectionDueDate,
		LastInspectionApprovedDate: v.LastInspectionApprovedDate,
		OwnerRegistrationStart:     v.OwnerRegistrationStart,
		CreatedAt:                  v.CreatedAt,
		UpdatedAt:                  v.UpdatedAt,
	})
}

func (v *VehicleRecord) UnmarshalJSON(data []byte) error {
	var raw vehicleRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fuel, err := FuelVariantOf(raw.FuelConsumptionLPer10Km, raw.WLTPRangeKm)
	if err != nil {
		return err
	}
	*v = VehicleRecord{
		Plate:                      raw.Plate,
		FirstRegisteredInNorway:    raw.FirstRegisteredInNorway,
		VehicleCategory:            raw.VehicleCategory,
		Dimensions:                 raw.Dimensions,
		ManufacturerName:           raw.ManufacturerName,
		Brand:                      raw.Brand,
		ModelName:                  raw.ModelName,
		DrivingSide:                raw.DrivingSide,
		ColorName:                  raw.ColorName,
		ColorDescription:           raw.ColorDescription,
		FuelType:                   raw.FuelType,
		Fuel:                       fuel,
		TransmissionType:           raw.TransmissionType,
		MaximumSpeedKmh:            raw.MaximumSpeedKmh,
		InspectionDueDate:          raw.InspectionDueDate,
		LastInspectionApprovedDate: raw.LastInspectionApprovedDate,
		OwnerRegistrationStart:     raw.OwnerRegistrationStart,
		CreatedAt:                  raw.CreatedAt,
		UpdatedAt:                  raw.UpdatedAt,
	}
	return nil
}

type PaginatedVehiclesResponse struct {
	PaginatedResponse
	Total    int64           `json:"total"`
	Vehicles []VehicleRecord `json:"vehicles"`
}

type ListVehiclesParams struct {
	Offset int32
	Limit  int32
}

type VehicleRepository interface {
	Get(ctx context.Context, plate string) (VehicleRecord, error)
	Put(ctx context.Context, vehicle VehicleRecord) (VehicleRecord, error)
	List(ctx context.Context, params ListVehiclesParams) (Page[VehicleRecord], error)
}

package registry

import (
	"errors"
	"strings"
	"time"

	"github.com/technopolitica/open-registry/internal/domain"
)

// Registry spellings of the electric fuel type. Comparison is case-insensitive.
var electricFuelTypes = []string{"elektrisk", "electric"}

const (
	pathRoot              = "kjoretoydataListe[0]"
	PathPlate             = pathRoot + ".kjoretoyId.kjennemerke"
	pathFirstRegistration = pathRoot + ".forstegangsregistrering.registrertForstegangNorgeDato"
	pathApproval          = pathRoot + ".godkjenning"
	pathTechnicalApproval = pathApproval + ".tekniskGodkjenning"
	pathTechnicalData     = pathTechnicalApproval + ".tekniskeData"
	pathDimensions        = pathTechnicalData + ".dimensjoner"
	pathPowertrain        = pathTechnicalData + ".motorOgDrivverk"
	pathMaximumSpeed      = pathPowertrain + ".maksimumHastighet[0]"
	pathConsumption       = pathTechnicalData + ".miljodata.miljoOgdrivstoffGruppe[0].forbrukOgUtslipp[0]"
	pathBlendedFuel       = pathConsumption + ".forbrukBlandetKjoring"
	pathWLTPRange         = pathConsumption + ".wltpKjoretoyspesifikk.rekkeviddeKmBlandetkjoring"
	pathInspection        = pathRoot + ".periodiskKjoretoyKontroll"
	pathRegistrationSince = pathRoot + ".registrering.fomTidspunkt"
)

func missing(path string) error {
	return &domain.MappingError{Path: path, Reason: "required section is missing"}
}

func malformed(path string, err error) error {
	return &domain.MappingError{Path: path, Reason: err.Error()}
}

// DecodeAndMap decodes a registry response body and maps it to a
// VehicleRecord. Bodies that are not JSON objects of the expected shape are
// reported as a MappingError at "$".
func DecodeAndMap(data []byte) (domain.VehicleRecord, error) {
	doc, err := DecodeDocument(data)
	if err != nil {
		return domain.VehicleRecord{}, malformed("$", err)
	}
	return MapVehicle(doc)
}

// MapVehicle translates a registry document into a VehicleRecord.
//
// Sections that make up the document's skeleton (the vehicle entry, its
// approval, technical approval and technical data, and the plate) must be
// present; their absence is a MappingError. Everything else describes data
// the registry may or may not hold for a given vehicle and maps to nil when
// absent. Values that are present but cannot be coerced to their type are
// MappingErrors as well.
func MapVehicle(doc RawVehicleDocument) (vehicle domain.VehicleRecord, err error) {
	if len(doc.VehicleDataList) == 0 {
		err = missing(pathRoot)
		return
	}
	root := doc.VehicleDataList[0]
	if root.Approval == nil {
		err = missing(pathApproval)
		return
	}
	technicalApproval := root.Approval.TechnicalApproval
	if technicalApproval == nil {
		err = missing(pathTechnicalApproval)
		return
	}
	technicalData := technicalApproval.TechnicalData
	if technicalData == nil {
		err = missing(pathTechnicalData)
		return
	}

	if root.VehicleID == nil || root.VehicleID.Plate == nil {
		err = missing(PathPlate)
		return
	}
	vehicle.Plate, err = domain.NormalizePlate(*root.VehicleID.Plate)
	if err != nil {
		err = malformed(PathPlate, err)
		return
	}

	if root.FirstRegistration != nil {
		vehicle.FirstRegisteredInNorway, err = optionalDate(pathFirstRegistration, root.FirstRegistration.RegisteredInNorwayDate)
		if err != nil {
			return
		}
	}
	if technicalApproval.Classification != nil {
		vehicle.VehicleCategory = technicalApproval.Classification.Description
	}

	vehicle.Dimensions, err = mapDimensions(technicalData.Dimensions)
	if err != nil {
		return
	}

	if general := technicalData.General; general != nil {
		if len(general.Manufacturers) > 0 {
			vehicle.ManufacturerName = general.Manufacturers[0].Name
		}
		if len(general.Brands) > 0 {
			vehicle.Brand = general.Brands[0].Name
		}
		if len(general.TradeNames) > 0 {
			vehicle.ModelName = general.TradeNames[0]
		}
	}

	if body := technicalData.Body; body != nil {
		vehicle.DrivingSide = body.DrivingSide
		if len(body.Colors) > 0 {
			vehicle.ColorName = body.Colors[0].Name
			vehicle.ColorDescription = body.Colors[0].Description
		}
	}

	vehicle.FuelType, vehicle.Fuel, err = mapFuel(technicalData.Environment)
	if err != nil {
		return
	}

	if powertrain := technicalData.Powertrain; powertrain != nil {
		if powertrain.Gearbox != nil {
			vehicle.TransmissionType = powertrain.Gearbox.Name
		}
		if len(powertrain.MaximumSpeeds) > 0 {
			vehicle.MaximumSpeedKmh, err = optionalInt(pathMaximumSpeed, powertrain.MaximumSpeeds[0])
			if err != nil {
				return
			}
		}
	}

	if inspection := root.PeriodicInspection; inspection != nil {
		vehicle.InspectionDueDate, err = optionalDate(pathInspection+".kontrollfrist", inspection.DueDate)
		if err != nil {
			return
		}
		vehicle.LastInspectionApprovedDate, err = optionalDate(pathInspection+".sistGodkjent", inspection.LastApprovedDate)
		if err != nil {
			return
		}
	}

	if root.Registration != nil && root.Registration.Since != nil {
		var since time.Time
		since, err = time.Parse(time.RFC3339, *root.Registration.Since)
		if err != nil {
			err = malformed(pathRegistrationSince, err)
			return
		}
		vehicle.OwnerRegistrationStart = &since
	}
	return
}

func mapDimensions(raw *RawDimensions) (dimensions domain.Dimensions, err error) {
	if raw == nil {
		return
	}
	if dimensions.Width, err = optionalInt(pathDimensions+".bredde", raw.Width); err != nil {
		return
	}
	if dimensions.Height, err = optionalInt(pathDimensions+".hoyde", raw.Height); err != nil {
		return
	}
	dimensions.Length, err = optionalInt(pathDimensions+".lengde", raw.Length)
	return
}

// mapFuel resolves the fuel-type dependent variant. Electric vehicles carry a
// WLTP range, everything else a blended consumption converted from litres per
// 100 km to litres per 10 km. A zero or missing figure yields no variant.
func mapFuel(environment *Environment) (fuelType *string, fuel domain.FuelVariant, err error) {
	if environment == nil || len(environment.FuelGroups) == 0 {
		return
	}
	group := environment.FuelGroups[0]
	if group.FuelCode != nil {
		fuelType = group.FuelCode.Name
	}
	if len(group.Consumption) == 0 {
		return
	}
	consumption := group.Consumption[0]

	if isElectric(fuelType) {
		if consumption.WLTPVehicle == nil || consumption.WLTPVehicle.CombinedRangeKm == nil {
			return
		}
		var rangeKm int
		rangeKm, err = consumption.WLTPVehicle.CombinedRangeKm.Int()
		if err != nil {
			err = malformed(pathWLTPRange, err)
			return
		}
		if rangeKm != 0 {
			fuel = domain.Electric{WLTPRangeKm: rangeKm}
		}
		return
	}

	if consumption.BlendedConsumption == nil {
		return
	}
	var litersPer100Km float64
	litersPer100Km, err = consumption.BlendedConsumption.Float64()
	if err != nil {
		err = malformed(pathBlendedFuel, err)
		return
	}
	if litersPer100Km != 0 {
		fuel = domain.Combustion{LitersPer10Km: litersPer100Km / 10}
	}
	return
}

func isElectric(fuelType *string) bool {
	if fuelType == nil {
		return false
	}
	normalized := strings.TrimSpace(*fuelType)
	for _, name := range electricFuelTypes {
		if strings.EqualFold(normalized, name) {
			return true
		}
	}
	return false
}

func optionalInt(path string, n *Number) (*int, error) {
	if n == nil {
		return nil, nil
	}
	v, err := n.Int()
	if err != nil {
		return nil, malformed(path, err)
	}
	return &v, nil
}

func optionalDate(path string, text *string) (*domain.Date, error) {
	if text == nil {
		return nil, nil
	}
	d, err := domain.ParseDate(*text)
	if err != nil {
		return nil, malformed(path, err)
	}
	return &d, nil
}

// PathOf returns the document path a mapping error was raised at.
func PathOf(err error) (string, bool) {
	var mappingErr *domain.MappingError
	if errors.As(err, &mappingErr) {
		return mappingErr.Path, true
	}
	return "", false
}

package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawVehicleDocument is the response body of the registry's single-vehicle
// lookup. Every nesting level is a pointer or slice so that a missing branch
// can be told apart from an empty one.
type RawVehicleDocument struct {
	VehicleDataList []VehicleData `json:"kjoretoydataListe"`
}

type VehicleData struct {
	VehicleID          *VehicleID          `json:"kjoretoyId"`
	FirstRegistration  *FirstRegistration  `json:"forstegangsregistrering"`
	Approval           *Approval           `json:"godkjenning"`
	PeriodicInspection *PeriodicInspection `json:"periodiskKjoretoyKontroll"`
	Registration       *Registration       `json:"registrering"`
}

type VehicleID struct {
	Plate *string `json:"kjennemerke"`
}

type FirstRegistration struct {
	RegisteredInNorwayDate *string `json:"registrertForstegangNorgeDato"`
}

type Approval struct {
	TechnicalApproval *TechnicalApproval `json:"tekniskGodkjenning"`
}

type TechnicalApproval struct {
	Classification *Classification `json:"kjoretoyklassifisering"`
	TechnicalData  *TechnicalData  `json:"tekniskeData"`
}

type Classification struct {
	Description *string `json:"beskrivelse"`
}

type TechnicalData struct {
	Dimensions  *RawDimensions `json:"dimensjoner"`
	General     *General       `json:"generelt"`
	Body        *Body          `json:"karosseriOgLasteplan"`
	Environment *Environment   `json:"miljodata"`
	Powertrain  *Powertrain    `json:"motorOgDrivverk"`
}

type RawDimensions struct {
	Width  *Number `json:"bredde"`
	Height *Number `json:"hoyde"`
	Length *Number `json:"lengde"`
}

type General struct {
	Manufacturers []Manufacturer `json:"fabrikant"`
	Brands        []Brand        `json:"merke"`
	TradeNames    []*string      `json:"handelsbetegnelse"`
}

type Manufacturer struct {
	Name *string `json:"fabrikantNavn"`
}

type Brand struct {
	Name *string `json:"merke"`
}

type Body struct {
	DrivingSide *string `json:"kjoringSide"`
	Colors      []Code  `json:"rFarge"`
}

// Code is the registry's generic code-list entry.
type Code struct {
	Value       *string `json:"kodeVerdi"`
	Name        *string `json:"kodeNavn"`
	Description *string `json:"kodeBeskrivelse"`
}

type Environment struct {
	FuelGroups []FuelGroup `json:"miljoOgdrivstoffGruppe"`
}

type FuelGroup struct {
	FuelCode    *Code                    `json:"drivstoffKodeMiljodata"`
	Consumption []ConsumptionAndEmission `json:"forbrukOgUtslipp"`
}

type ConsumptionAndEmission struct {
	BlendedConsumption *Number      `json:"forbrukBlandetKjoring"`
	WLTPVehicle        *WLTPVehicle `json:"wltpKjoretoyspesifikk"`
}

type WLTPVehicle struct {
	CombinedRangeKm *Number `json:"rekkeviddeKmBlandetkjoring"`
}

type Powertrain struct {
	Gearbox       *Code     `json:"girkassetype"`
	MaximumSpeeds []*Number `json:"maksimumHastighet"`
}

type PeriodicInspection struct {
	DueDate          *string `json:"kontrollfrist"`
	LastApprovedDate *string `json:"sistGodkjent"`
}

type Registration struct {
	Since *string `json:"fomTidspunkt"`
}

// Number is a scalar the registry documents as numeric. It keeps the raw text
// until the mapper coerces it, so that non-numeric content is reported with
// the path it was found at instead of failing the whole decode.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(text))
		return nil
	}
	*n = Number(data)
	return nil
}

func (n Number) Float64() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", string(n))
	}
	return f, nil
}

// Int accepts integral values only, "180" and "180.0" but not "180.5".
func (n Number) Int() (int, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%q is not an integer", string(n))
	}
	return int(f), nil
}

// DecodeDocument parses a registry response body.
func DecodeDocument(data []byte) (doc RawVehicleDocument, err error) {
	err = json.Unmarshal(data, &doc)
	return
}

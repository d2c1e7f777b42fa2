package domain

import (
	"errors"
	"time"
)

// FacilityType categorises a location.
type FacilityType string

const (
	FacilityGasStation         FacilityType = "gas_station"
	FacilityTruckStop          FacilityType = "truck_stop"
	FacilityStorageFacility    FacilityType = "storage_facility"
	FacilityDistributionCenter FacilityType = "distribution_center"
	FacilityTerminal           FacilityType = "terminal"
	FacilityConvenienceStore   FacilityType = "convenience_store"
)

// TankStatus represents the operational state of a tank.
type TankStatus string

const (
	TankActive       TankStatus = "active"
	TankInactive     TankStatus = "inactive"
	TankMaintenance  TankStatus = "maintenance"
	TankOutOfService TankStatus = "out_of_service"
)

var ErrFacilityNotFound = errors.New("facility not found")
var ErrDuplicateFacility = errors.New("facility name already exists")
var ErrDuplicateTank = errors.New("tank label already exists at this facility")
var ErrTankNotFound = errors.New("tank not found")

// ValidFacilityType reports whether t is a known facility type.
func ValidFacilityType(t FacilityType) bool {
	switch t {
	case FacilityGasStation, FacilityTruckStop, FacilityStorageFacility,
		FacilityDistributionCenter, FacilityTerminal, FacilityConvenienceStore:
		return true
	}
	return false
}

// Tank is a storage tank registered at a facility. Labels are unique within
// a facility.
type Tank struct {
	Label            string     `json:"label" bson:"label"`
	Product          string     `json:"product,omitempty" bson:"product,omitempty"`
	Status           TankStatus `json:"status" bson:"status"`
	Size             string     `json:"size,omitempty" bson:"size,omitempty"`
	Material         string     `json:"material,omitempty" bson:"material,omitempty"`
	ReleaseDetection string     `json:"release_detection,omitempty" bson:"release_detection,omitempty"`
	PipingMaterial   string     `json:"piping_material,omitempty" bson:"piping_material,omitempty"`
	Installed        string     `json:"installed,omitempty" bson:"installed,omitempty"`
}

// Facility is a physical location (store, terminal, ...) that holds permits
// and tanks.
type Facility struct {
	ID            string       `json:"id" bson:"_id,omitempty"`
	Name          string       `json:"name" bson:"name"`
	StreetAddress string       `json:"street_address,omitempty" bson:"street_address,omitempty"`
	City          string       `json:"city,omitempty" bson:"city,omitempty"`
	State         string       `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode       string       `json:"zip_code,omitempty" bson:"zip_code,omitempty"`
	Country       string       `json:"country" bson:"country"`
	Type          FacilityType `json:"facility_type" bson:"facility_type"`
	Description   string       `json:"description,omitempty" bson:"description,omitempty"`
	IsActive      bool         `json:"is_active" bson:"is_active"`
	Tanks         []Tank       `json:"tanks" bson:"tanks"`
	CreatedByID   string       `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updated_at"`
}

// FindTank returns the tank with the given label, if present.
func (f Facility) FindTank(label string) (Tank, bool) {
	for _, t := range f.Tanks {
		if t.Label == label {
			return t, true
		}
	}
	return Tank{}, false
}

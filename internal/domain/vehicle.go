package domain

import "strings"

// VehicleType identifies a delivery vehicle category.
type VehicleType int

const (
	VehicleUnknown VehicleType = iota
	VehicleCar
	VehicleScooter
	VehicleBike
)

// VehicleTypes lists all supported vehicle types in display order.
var VehicleTypes = []VehicleType{VehicleCar, VehicleScooter, VehicleBike}

// ParseVehicleType resolves user input to a VehicleType case-insensitively.
func ParseVehicleType(s string) VehicleType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "car":
		return VehicleCar
	case "scooter":
		return VehicleScooter
	case "bike":
		return VehicleBike
	default:
		return VehicleUnknown
	}
}

// String returns the lowercase vehicle name.
func (v VehicleType) String() string {
	switch v {
	case VehicleCar:
		return "car"
	case VehicleScooter:
		return "scooter"
	case VehicleBike:
		return "bike"
	default:
		return "unknown"
	}
}

// Known reports whether the vehicle type is a supported one.
func (v VehicleType) Known() bool {
	return v != VehicleUnknown
}

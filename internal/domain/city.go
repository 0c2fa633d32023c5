package domain

import "strings"

// City identifies a serviced delivery city.
type City int

const (
	CityUnknown City = iota
	CityTallinn
	CityTartu
	CityParnu
)

// Cities lists all serviced cities in display order.
var Cities = []City{CityTallinn, CityTartu, CityParnu}

// ParseCity resolves user input to a City, accepting documented aliases
// case-insensitively. Unknown input yields CityUnknown.
func ParseCity(s string) City {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tallinn", "tln":
		return CityTallinn
	case "tartu", "trt":
		return CityTartu
	case "pärnu", "parnu", "prn":
		return CityParnu
	default:
		return CityUnknown
	}
}

// String returns the human-readable city name.
func (c City) String() string {
	switch c {
	case CityTallinn:
		return "Tallinn"
	case CityTartu:
		return "Tartu"
	case CityParnu:
		return "Pärnu"
	default:
		return "unknown"
	}
}

// Known reports whether the city is a serviced one.
func (c City) Known() bool {
	return c != CityUnknown
}

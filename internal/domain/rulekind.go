package domain

import "strings"

// Metric names the weather measurement an extra fee rule is keyed on.
type Metric int

const (
	MetricUnknown Metric = iota
	MetricAirTemp
	MetricWindSpeed
	MetricPhenomenon
)

// NumericMetrics lists the metrics carrying float thresholds.
var NumericMetrics = []Metric{MetricAirTemp, MetricWindSpeed}

// ParseMetric resolves user input to a Metric case-insensitively.
func ParseMetric(s string) Metric {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "airtemp":
		return MetricAirTemp
	case "windspeed":
		return MetricWindSpeed
	case "phenomenon":
		return MetricPhenomenon
	default:
		return MetricUnknown
	}
}

// String returns the lowercase metric name.
func (m Metric) String() string {
	switch m {
	case MetricAirTemp:
		return "airtemp"
	case MetricWindSpeed:
		return "windspeed"
	case MetricPhenomenon:
		return "phenomenon"
	default:
		return "unknown"
	}
}

// ValueType names the comparison semantics of an extra fee rule value.
type ValueType int

const (
	ValueTypeUnknown ValueType = iota
	// ValueTypeFrom matches observed values at or above the threshold.
	ValueTypeFrom
	// ValueTypeUntil matches observed values at or below the threshold.
	ValueTypeUntil
	// ValueTypePhenomenon matches the observed phenomenon text literally.
	ValueTypePhenomenon
)

// ParseValueType resolves user input to a ValueType case-insensitively.
func ParseValueType(s string) ValueType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "from":
		return ValueTypeFrom
	case "until":
		return ValueTypeUntil
	case "phenomenon":
		return ValueTypePhenomenon
	default:
		return ValueTypeUnknown
	}
}

// String returns the lowercase value type name.
func (t ValueType) String() string {
	switch t {
	case ValueTypeFrom:
		return "from"
	case ValueTypeUntil:
		return "until"
	case ValueTypePhenomenon:
		return "phenomenon"
	default:
		return "unknown"
	}
}

package models

// TransportMode is the enumerated mode of a movement
type TransportMode string

const (
	TransportUnknown       TransportMode = "unknown"
	TransportWalk          TransportMode = "walk"
	TransportRun           TransportMode = "run"
	TransportDrive         TransportMode = "drive"
	TransportPublicTransit TransportMode = "public_transit"
	TransportBike          TransportMode = "bike"
	TransportFlight        TransportMode = "flight"
)

// transportModeByType maps the stored ZMOVEMENT.ZTYPE_ code to a mode.
// Code 5 has historically meant both transit and flight; transit is used.
var transportModeByType = map[int64]TransportMode{
	0: TransportUnknown,
	2: TransportWalk,
	3: TransportRun,
	4: TransportDrive,
	5: TransportPublicTransit,
	6: TransportBike,
}

var transportLabels = map[TransportMode]string{
	TransportUnknown:       "Unknown",
	TransportWalk:          "Walk",
	TransportRun:           "Run",
	TransportDrive:         "Drive",
	TransportPublicTransit: "Public Transit",
	TransportBike:          "Bike",
	TransportFlight:        "Flight",
}

// TransportModeFromType converts a stored type code; unmapped codes are unknown
func TransportModeFromType(code int64) TransportMode {
	if mode, ok := transportModeByType[code]; ok {
		return mode
	}
	return TransportUnknown
}

// Label returns the canonical human label used when a movement has no name
func (m TransportMode) Label() string {
	if label, ok := transportLabels[m]; ok {
		return label
	}
	return transportLabels[TransportUnknown]
}

package replay

// UDP ports the replayer sends to, one per message family.
const (
	GNSSPort    = 9930
	SensorsPort = 9931
	VehiclePort = 9932
)

// BufferLen is the receive buffer size for one datagram.
const BufferLen = 256

type Family int

const (
	FamilyUnknown Family = iota
	FamilyGNSS
	FamilySensors
	FamilyVehicle
)

func (f Family) String() string {
	switch f {
	case FamilyGNSS:
		return "gnss"
	case FamilySensors:
		return "sensors"
	case FamilyVehicle:
		return "vehicle"
	default:
		return "unknown"
	}
}

// Port returns the UDP port for the family, or 0.
func (f Family) Port() int {
	switch f {
	case FamilyGNSS:
		return GNSSPort
	case FamilySensors:
		return SensorsPort
	case FamilyVehicle:
		return VehiclePort
	default:
		return 0
	}
}

var families = map[string]Family{
	IDPosition:     FamilyGNSS,
	IDCourse:       FamilyGNSS,
	IDAccuracy:     FamilyGNSS,
	IDSatellite:    FamilyGNSS,
	IDVehicleSpeed: FamilySensors,
	IDGyroscope:    FamilySensors,
	IDAcceleration: FamilySensors,
	IDWheelTicks:   FamilySensors,

	// Vehicle data is routed but not decoded.
	"GVVEHVER":       FamilyVehicle,
	"GVVEHENGSPEED":  FamilyVehicle,
	"GVVEHFUELLEVEL": FamilyVehicle,
	"GVVEHFUELCONS":  FamilyVehicle,
	"GVVEHTOTALODO":  FamilyVehicle,
}

func FamilyOf(msgID string) Family {
	return families[msgID]
}

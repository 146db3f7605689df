// Package reading defines the validity-tagged readings produced by the GNSS
// and sensor backends.
//
// Every reading carries a monotonic millisecond timestamp and a validity
// bitmask. A field is meaningful only when its validity bit is set. Readings
// are built from zero (no bits) and replaced whole; nothing in this module
// merges a new reading into an older one.
package reading

// Stamped is implemented by every reading type.
type Stamped interface {
	Stamp() uint64
}

// APIVersion is reported in metadata.
const APIVersion uint32 = 4

type Category uint8

const (
	CategoryUnknown  Category = 0
	CategoryLogical  Category = 1
	CategoryPhysical Category = 2
)

// GNSS metadata type bits.
const (
	GNSSTypeGNSS     uint32 = 0x01
	GNSSTypeAssisted uint32 = 0x02
	GNSSTypeSBAS     uint32 = 0x04
	GNSSTypeDGPS     uint32 = 0x08
	GNSSTypeDR       uint32 = 0x10
)

// GNSSMetadata describes what a GNSS backend produces.
type GNSSMetadata struct {
	Version     uint32
	Category    Category
	TypeBits    uint32
	CycleTimeMs uint32 // 0 for irregular updates
	NumChannels uint16
}

type SensorType uint8

const (
	SensorUnknown SensorType = iota
	SensorAcceleration
	SensorGyroscope
	SensorInclination
	SensorOdometer
	SensorReverseGear
	SensorSlipAngle
	SensorSteeringAngle
	SensorVehicleSpeed
	SensorVehicleState
	SensorWheelTick
	SensorWheelSpeedAngular
	SensorWheelSpeed
)

// SensorMetadata describes one sensor type a sensor backend produces.
type SensorMetadata struct {
	Version     uint32
	Category    Category
	Type        SensorType
	CycleTimeMs uint32
}

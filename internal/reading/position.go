package reading

// PositionValidity flags which Position fields carry data.
type PositionValidity uint32

const (
	PosLatitude          PositionValidity = 0x00000001
	PosLongitude         PositionValidity = 0x00000002
	PosAltitudeMSL       PositionValidity = 0x00000004
	PosAltitudeEll       PositionValidity = 0x00000008
	PosHSpeed            PositionValidity = 0x00000010
	PosVSpeed            PositionValidity = 0x00000020
	PosHeading           PositionValidity = 0x00000040
	PosPDOP              PositionValidity = 0x00000080
	PosHDOP              PositionValidity = 0x00000100
	PosVDOP              PositionValidity = 0x00000200
	PosUsedSatellites    PositionValidity = 0x00000400
	PosTrackedSatellites PositionValidity = 0x00000800
	PosVisibleSatellites PositionValidity = 0x00001000
	PosSigmaHPosition    PositionValidity = 0x00002000
	PosSigmaAltitude     PositionValidity = 0x00004000
	PosSigmaHSpeed       PositionValidity = 0x00008000
	PosSigmaVSpeed       PositionValidity = 0x00010000
	PosSigmaHeading      PositionValidity = 0x00020000
	PosFixStatus         PositionValidity = 0x00040000
	PosFixType           PositionValidity = 0x00080000
	PosActivatedSystems  PositionValidity = 0x00100000
	PosUsedSystems       PositionValidity = 0x00200000
)

// FixStatus is the quality of the current fix. Higher values are better.
type FixStatus uint8

const (
	FixNo   FixStatus = 0
	FixTime FixStatus = 1
	Fix2D   FixStatus = 2
	Fix3D   FixStatus = 3
)

func (s FixStatus) String() string {
	switch s {
	case FixNo:
		return "no-fix"
	case FixTime:
		return "time"
	case Fix2D:
		return "2d"
	case Fix3D:
		return "3d"
	default:
		return "unknown"
	}
}

// FixType is a bitmask describing how the fix was obtained.
type FixType uint32

const (
	FixTypeSingleFrequency    FixType = 0x00000001
	FixTypeMultiFrequency     FixType = 0x00000002
	FixTypeMultiConstellation FixType = 0x00000004
	FixTypePPP                FixType = 0x00000010
	FixTypeIntegrityChecked   FixType = 0x00000020
	FixTypeSBAS               FixType = 0x00001000
	FixTypeDGNSS              FixType = 0x00002000
	FixTypeRTKFixed           FixType = 0x00004000
	FixTypeRTKFloat           FixType = 0x00008000
	FixTypeSSR                FixType = 0x00010000
	FixTypeEstimated          FixType = 0x00100000
	FixTypeDeadReckoning      FixType = 0x00200000
	FixTypeManual             FixType = 0x10000000
	FixTypeSimulatorMode      FixType = 0x20000000
)

// System is a bitmask of satellite systems and signals.
type System uint32

const (
	SystemGPS          System = 0x00000001
	SystemGLONASS      System = 0x00000002
	SystemGalileo      System = 0x00000004
	SystemBeidou       System = 0x00000008
	SystemGPSL2        System = 0x00000010
	SystemGPSL5        System = 0x00000020
	SystemGLONASSL2    System = 0x00000040
	SystemBeidouB2     System = 0x00000080
	SystemSBASWAAS     System = 0x00010000
	SystemSBASEGNOS    System = 0x00020000
	SystemSBASMSAS     System = 0x00040000
	SystemSBASQZSSSAIF System = 0x00080000
	SystemSBASSDCM     System = 0x00100000
	SystemSBASGAGAN    System = 0x00200000
)

// Position is one GNSS position/velocity/accuracy reading.
//
// Angles are degrees, altitudes meters, speeds m/s. Heading is relative to
// true north, VSpeed is positive upwards.
type Position struct {
	Timestamp uint64

	Latitude    float64
	Longitude   float64
	AltitudeMSL float32
	AltitudeEll float32

	HSpeed  float32
	VSpeed  float32
	Heading float32

	PDOP float32
	HDOP float32
	VDOP float32

	UsedSatellites    uint16
	TrackedSatellites uint16
	VisibleSatellites uint16

	SigmaHPosition float32
	SigmaAltitude  float32
	SigmaHSpeed    float32
	SigmaVSpeed    float32
	SigmaHeading   float32

	FixStatus        FixStatus
	FixTypeBits      FixType
	ActivatedSystems System
	UsedSystems      System

	Validity PositionValidity
}

func (p Position) Stamp() uint64 { return p.Timestamp }

// Has reports whether every bit in v is set.
func (p Position) Has(v PositionValidity) bool { return p.Validity&v == v }

package reading

type TimeValidity uint32

const (
	TimeTime        TimeValidity = 0x1
	TimeDate        TimeValidity = 0x2
	TimeScaleValid  TimeValidity = 0x4
	TimeLeapSeconds TimeValidity = 0x8
)

type TimeScale uint8

const (
	ScaleUTC TimeScale = 0
	ScaleGPS TimeScale = 1
)

// Time is a UTC (or GPS) calendar time reported by the receiver.
// Month is zero based (0 = January).
type Time struct {
	Timestamp uint64

	Year        uint16
	Month       uint8
	Day         uint8
	Hour        uint8
	Minute      uint8
	Second      uint8
	Millisecond uint16
	Scale       TimeScale
	LeapSeconds int8

	Validity TimeValidity
}

func (t Time) Stamp() uint64 { return t.Timestamp }

func (t Time) Has(v TimeValidity) bool { return t.Validity&v == v }

// Status is the operational state of a GNSS or sensor source.
type Status uint8

const (
	StatusNotAvailable Status = 0
	StatusInitializing Status = 1
	StatusAvailable    Status = 2
	StatusRestarting   Status = 3
	StatusFailure      Status = 4
	StatusOutOfService Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusNotAvailable:
		return "not-available"
	case StatusInitializing:
		return "initializing"
	case StatusAvailable:
		return "available"
	case StatusRestarting:
		return "restarting"
	case StatusFailure:
		return "failure"
	case StatusOutOfService:
		return "out-of-service"
	default:
		return "unknown"
	}
}

type AntennaStatus uint8

const (
	AntennaNormal       AntennaStatus = 0
	AntennaOverCurrent  AntennaStatus = 1
	AntennaOpen         AntennaStatus = 2
	AntennaShortGND     AntennaStatus = 3
	AntennaShortBatt    AntennaStatus = 4
	AntennaOutOfService AntennaStatus = 5
)

type GNSSStatusValidity uint32

const (
	GNSSStatusStatus  GNSSStatusValidity = 0x1
	GNSSStatusAntenna GNSSStatusValidity = 0x2
)

type GNSSStatus struct {
	Timestamp     uint64
	Status        Status
	AntennaStatus AntennaStatus
	Validity      GNSSStatusValidity
}

func (s GNSSStatus) Stamp() uint64 { return s.Timestamp }

type SatelliteStatus uint32

const (
	SatUsed               SatelliteStatus = 0x1
	SatEphemerisAvailable SatelliteStatus = 0x2
)

type SatelliteValidity uint32

const (
	SatSystem    SatelliteValidity = 0x01
	SatID        SatelliteValidity = 0x02
	SatAzimuth   SatelliteValidity = 0x04
	SatElevation SatelliteValidity = 0x08
	SatSNR       SatelliteValidity = 0x10
	SatUsedFlag  SatelliteValidity = 0x20
	SatEphemeris SatelliteValidity = 0x40
	SatResidual  SatelliteValidity = 0x80
)

// SatelliteDetail describes one satellite. A delivered batch of these is the
// satellite set for one epoch.
type SatelliteDetail struct {
	Timestamp   uint64
	System      System
	SatelliteID uint16
	Azimuth     uint16
	Elevation   uint16
	SNR         uint16
	StatusBits  SatelliteStatus
	PosResidual int16
	Validity    SatelliteValidity
}

func (s SatelliteDetail) Stamp() uint64 { return s.Timestamp }

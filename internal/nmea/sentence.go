package nmea

import "positioning-ng/internal/reading"

type Kind int

const (
	KindUnknown Kind = iota
	KindBadChecksum
	KindRMC
	KindGGA
	KindGSA
	KindGST
	KindGSV
)

func (k Kind) String() string {
	switch k {
	case KindBadChecksum:
		return "bad_checksum"
	case KindRMC:
		return "rmc"
	case KindGGA:
		return "gga"
	case KindGSA:
		return "gsa"
	case KindGST:
		return "gst"
	case KindGSV:
		return "gsv"
	default:
		return "unknown"
	}
}

// Sentence is the result of Decode. It is one of RMC, GGA, GSA, GST, GSV,
// Unknown or BadChecksum.
type Sentence interface {
	Kind() Kind
	sentence()
}

// RMC carries a Position fragment (status, lat/lon, speed, heading) and a
// Time fragment (time of day, date).
type RMC struct {
	Position reading.Position
	Time     reading.Time
}

// GGA carries a Position fragment (fix, lat/lon, satellites, HDOP,
// altitudes) and a Time fragment (time of day only).
type GGA struct {
	Position reading.Position
	Time     reading.Time
}

type GSA struct {
	Position reading.Position
}

type GST struct {
	Position reading.Position
	Time     reading.Time
}

// GSV is one part of a satellites-in-view sequence.
type GSV struct {
	System        reading.System
	MessageNumber int
	TotalMessages int
	InView        int
	Satellites    []reading.SatelliteDetail
}

// Last reports whether this part completes its sequence.
func (g GSV) Last() bool { return g.MessageNumber >= g.TotalMessages }

type Unknown struct {
	ID string
}

// BadChecksum is returned for a sentence whose checksum does not match. No
// fields are decoded.
type BadChecksum struct {
	ID   string
	Want byte
	Got  byte
}

func (RMC) Kind() Kind         { return KindRMC }
func (GGA) Kind() Kind         { return KindGGA }
func (GSA) Kind() Kind         { return KindGSA }
func (GST) Kind() Kind         { return KindGST }
func (GSV) Kind() Kind         { return KindGSV }
func (Unknown) Kind() Kind     { return KindUnknown }
func (BadChecksum) Kind() Kind { return KindBadChecksum }

func (RMC) sentence()         {}
func (GGA) sentence()         {}
func (GSA) sentence()         {}
func (GST) sentence()         {}
func (GSV) sentence()         {}
func (Unknown) sentence()     {}
func (BadChecksum) sentence() {}

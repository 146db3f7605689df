package replay

import (
	"fmt"
	"strconv"
	"strings"

	"positioning-ng/internal/reading"
)

// Message ids understood by the decoders.
const (
	IDPosition     = "GVGNSP"
	IDCourse       = "GVGNSC"
	IDAccuracy     = "GVGNSAC"
	IDSatellite    = "GVGNSSAT"
	IDGyroscope    = "GVSNSGYRO"
	IDAcceleration = "GVSNSACC"
	IDWheelTicks   = "GVSNSWHTK"
	IDVehicleSpeed = "GVSNSVEHSP"
)

// Message is one decoded replay message. It is one of PositionMessage,
// CourseMessage, AccuracyMessage, SatelliteMessage, GyroMessage,
// AccelerationMessage, WheelTickMessage or VehicleSpeedMessage.
//
// Each message becomes a reading holding only the fields it carries.
type Message interface {
	ID() string
	message()
}

type PositionMessage struct{ Position reading.Position }
type CourseMessage struct{ Position reading.Position }
type AccuracyMessage struct{ Position reading.Position }
type SatelliteMessage struct{ Satellite reading.SatelliteDetail }
type GyroMessage struct{ Gyroscope reading.Gyroscope }
type AccelerationMessage struct{ Acceleration reading.Acceleration }
type WheelTickMessage struct{ WheelTicks reading.WheelTicks }
type VehicleSpeedMessage struct{ VehicleSpeed reading.VehicleSpeed }

func (PositionMessage) ID() string     { return IDPosition }
func (CourseMessage) ID() string       { return IDCourse }
func (AccuracyMessage) ID() string     { return IDAccuracy }
func (SatelliteMessage) ID() string    { return IDSatellite }
func (GyroMessage) ID() string         { return IDGyroscope }
func (AccelerationMessage) ID() string { return IDAcceleration }
func (WheelTickMessage) ID() string    { return IDWheelTicks }
func (VehicleSpeedMessage) ID() string { return IDVehicleSpeed }

func (PositionMessage) message()     {}
func (CourseMessage) message()       {}
func (AccuracyMessage) message()     {}
func (SatelliteMessage) message()    {}
func (GyroMessage) message()         {}
func (AccelerationMessage) message() {}
func (WheelTickMessage) message()    {}
func (VehicleSpeedMessage) message() {}

// DecodeMessage decodes the fields of f according to its id.
func DecodeMessage(f Frame) (Message, error) {
	p := fieldParser{id: f.ID, fields: f.Fields}
	var m Message
	switch f.ID {
	case IDPosition:
		m = p.position()
	case IDCourse:
		m = p.course()
	case IDAccuracy:
		m = p.accuracy()
	case IDSatellite:
		m = p.satellite()
	case IDGyroscope:
		m = p.gyroscope()
	case IDAcceleration:
		m = p.acceleration()
	case IDWheelTicks:
		m = p.wheelTicks()
	case IDVehicleSpeed:
		m = p.vehicleSpeed()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, f.ID)
	}
	if p.err != nil {
		return nil, p.err
	}
	return m, nil
}

// fieldParser keeps the first error so decoders read fields in order
// without checking each one.
type fieldParser struct {
	id     string
	fields []string
	err    error
}

func (p *fieldParser) need(n int) bool {
	if p.err != nil {
		return false
	}
	if len(p.fields) < n {
		p.err = fmt.Errorf("%w: %s has %d fields, want %d", ErrMalformed, p.id, len(p.fields), n)
		return false
	}
	return true
}

func (p *fieldParser) str(i int) string {
	if i >= len(p.fields) {
		return ""
	}
	return strings.TrimSpace(p.fields[i])
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s field %d: %v", ErrMalformed, p.id, i+1, err)
	}
}

func (p *fieldParser) u64(i int) uint64 {
	v, err := strconv.ParseUint(p.str(i), 10, 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) f64(i int) float64 {
	v, err := strconv.ParseFloat(p.str(i), 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) f32(i int) float32 {
	v, err := strconv.ParseFloat(p.str(i), 32)
	if err != nil {
		p.fail(i, err)
	}
	return float32(v)
}

func (p *fieldParser) u16(i int) uint16 {
	v, err := strconv.ParseUint(p.str(i), 10, 16)
	if err != nil {
		p.fail(i, err)
	}
	return uint16(v)
}

func (p *fieldParser) u32(i int) uint32 {
	v, err := strconv.ParseUint(p.str(i), 10, 32)
	if err != nil {
		p.fail(i, err)
	}
	return uint32(v)
}

// hex parses a bitmask written as 0X07, 0x07 or 07.
func (p *fieldParser) hex(i int) uint32 {
	s := p.str(i)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		p.fail(i, err)
	}
	return uint32(v)
}

// mapBits translates the legacy validity bits of the wire format.
func mapBits[T ~uint32](legacy uint32, table [][2]uint32) T {
	var out T
	for _, e := range table {
		if legacy&e[0] != 0 {
			out |= T(e[1])
		}
	}
	return out
}

var positionBits = [][2]uint32{
	{0x1, uint32(reading.PosLatitude)},
	{0x2, uint32(reading.PosLongitude)},
	{0x4, uint32(reading.PosAltitudeMSL)},
}

var courseBits = [][2]uint32{
	{0x1, uint32(reading.PosHSpeed)},
	{0x2, uint32(reading.PosVSpeed)},
	{0x4, uint32(reading.PosHeading)},
}

var accuracyBits = [][2]uint32{
	{0x001, uint32(reading.PosPDOP)},
	{0x002, uint32(reading.PosHDOP)},
	{0x004, uint32(reading.PosVDOP)},
	{0x008, uint32(reading.PosUsedSatellites)},
	{0x010, uint32(reading.PosTrackedSatellites)},
	{0x020, uint32(reading.PosVisibleSatellites)},
	{0x040, uint32(reading.PosSigmaHPosition)},
	{0x100, uint32(reading.PosSigmaAltitude)},
	{0x200, uint32(reading.PosFixStatus)},
	{0x400, uint32(reading.PosFixType)},
}

// Bits outside these masks name fields the wire format does not carry.
const (
	satelliteMask = reading.SatSystem | reading.SatID | reading.SatAzimuth | reading.SatElevation |
		reading.SatSNR | reading.SatUsedFlag | reading.SatEphemeris
	gyroMask  = reading.GyroYaw | reading.GyroPitch | reading.GyroRoll | reading.GyroTemp
	accelMask = reading.AccelX | reading.AccelY | reading.AccelZ | reading.AccelTemp
)

// GVGNSP: ts, latitude, longitude, altitude MSL, validity
func (p *fieldParser) position() Message {
	if !p.need(5) {
		return nil
	}
	return PositionMessage{Position: reading.Position{
		Timestamp:   p.u64(0),
		Latitude:    p.f64(1),
		Longitude:   p.f64(2),
		AltitudeMSL: p.f32(3),
		Validity:    mapBits[reading.PositionValidity](p.hex(4), positionBits),
	}}
}

// GVGNSC: ts, horizontal speed, vertical speed, heading, validity
func (p *fieldParser) course() Message {
	if !p.need(5) {
		return nil
	}
	return CourseMessage{Position: reading.Position{
		Timestamp: p.u64(0),
		HSpeed:    p.f32(1),
		VSpeed:    p.f32(2),
		Heading:   p.f32(3),
		Validity:  mapBits[reading.PositionValidity](p.hex(4), courseBits),
	}}
}

// legacyFix maps the wire fix status, which orders TIME last.
func legacyFix(v uint16) reading.FixStatus {
	switch v {
	case 1:
		return reading.Fix2D
	case 2:
		return reading.Fix3D
	case 3:
		return reading.FixTime
	default:
		return reading.FixNo
	}
}

// GVGNSAC: ts, pdop, hdop, vdop, used, tracked, visible satellites,
// sigma horizontal position (twice, the second is kept), sigma altitude,
// fix status, fix type bits, validity
func (p *fieldParser) accuracy() Message {
	if !p.need(13) {
		return nil
	}
	pos := reading.Position{
		Timestamp:         p.u64(0),
		PDOP:              p.f32(1),
		HDOP:              p.f32(2),
		VDOP:              p.f32(3),
		UsedSatellites:    p.u16(4),
		TrackedSatellites: p.u16(5),
		VisibleSatellites: p.u16(6),
		SigmaHPosition:    p.f32(7),
	}
	pos.SigmaHPosition = p.f32(8)
	pos.SigmaAltitude = p.f32(9)
	pos.FixStatus = legacyFix(p.u16(10))
	pos.FixTypeBits = reading.FixType(p.hex(11))
	pos.Validity = mapBits[reading.PositionValidity](p.hex(12), accuracyBits)
	return AccuracyMessage{Position: pos}
}

// GVGNSSAT: ts, system, satellite id, azimuth, elevation, SNR, status bits,
// validity
func (p *fieldParser) satellite() Message {
	if !p.need(8) {
		return nil
	}
	return SatelliteMessage{Satellite: reading.SatelliteDetail{
		Timestamp:   p.u64(0),
		System:      reading.System(p.u32(1)),
		SatelliteID: p.u16(2),
		Azimuth:     p.u16(3),
		Elevation:   p.u16(4),
		SNR:         p.u16(5),
		StatusBits:  reading.SatelliteStatus(p.hex(6)),
		Validity:    reading.SatelliteValidity(p.hex(7)) & satelliteMask,
	}}
}

// GVSNSGYRO: ts, yaw rate, pitch rate, roll rate, temperature, validity
func (p *fieldParser) gyroscope() Message {
	if !p.need(6) {
		return nil
	}
	return GyroMessage{Gyroscope: reading.Gyroscope{
		Timestamp:   p.u64(0),
		YawRate:     p.f32(1),
		PitchRate:   p.f32(2),
		RollRate:    p.f32(3),
		Temperature: p.f32(4),
		Validity:    reading.GyroscopeValidity(p.hex(5)) & gyroMask,
	}}
}

// GVSNSACC: ts, x, y, z, temperature, validity
func (p *fieldParser) acceleration() Message {
	if !p.need(6) {
		return nil
	}
	return AccelerationMessage{Acceleration: reading.Acceleration{
		Timestamp:   p.u64(0),
		X:           p.f32(1),
		Y:           p.f32(2),
		Z:           p.f32(3),
		Temperature: p.f32(4),
		Validity:    reading.AccelerationValidity(p.hex(5)) & accelMask,
	}}
}

// GVSNSWHTK: ts, then one to four (wheel id, counter) pairs
func (p *fieldParser) wheelTicks() Message {
	if !p.need(3) {
		return nil
	}
	pairs := (len(p.fields) - 1) / 2
	if pairs > reading.MaxWheelTicks {
		pairs = reading.MaxWheelTicks
	}
	w := reading.WheelTicks{Timestamp: p.u64(0)}
	for i := 0; i < pairs; i++ {
		id := p.u32(1 + 2*i)
		counter := p.u32(2 + 2*i)
		if id > uint32(reading.WheelRightRear) {
			p.fail(1+2*i, fmt.Errorf("wheel id %d out of range", id))
		}
		w.Set(i, reading.WheelID(id), counter)
	}
	return WheelTickMessage{WheelTicks: w}
}

// GVSNSVEHSP: ts, speed, validity
func (p *fieldParser) vehicleSpeed() Message {
	if !p.need(3) {
		return nil
	}
	return VehicleSpeedMessage{VehicleSpeed: reading.VehicleSpeed{
		Timestamp: p.u64(0),
		Speed:     p.f32(1),
		Validity:  reading.VehicleSpeedValidity(p.hex(2)) & reading.VehicleSpeedValid,
	}}
}

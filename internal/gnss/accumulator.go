package gnss

import (
	"positioning-ng/internal/nmea"
	"positioning-ng/internal/reading"
)

// Epoch is what one sentence completed. Nil or empty parts were not
// completed by it.
type Epoch struct {
	Position   *reading.Position
	Time       *reading.Time
	Satellites []reading.SatelliteDetail
}

type gsvSequence struct {
	next  int
	total int
	sats  []reading.SatelliteDetail
}

// Accumulator unions the sentence fragments of one epoch. An RMC closes the
// epoch: the collected Position and Time are returned and the state is
// cleared. Satellites are returned per completed GSV sequence.
type Accumulator struct {
	pos     reading.Position
	tm      reading.Time
	pending map[reading.System]*gsvSequence
}

func (a *Accumulator) Reset() {
	a.pos = reading.Position{}
	a.tm = reading.Time{}
	a.pending = nil
}

// Apply folds s into the epoch. now stamps any emitted reading.
func (a *Accumulator) Apply(s nmea.Sentence, now uint64) Epoch {
	switch v := s.(type) {
	case nmea.RMC:
		mergePosition(&a.pos, v.Position)
		mergeTime(&a.tm, v.Time)
		return a.emit(now)
	case nmea.GGA:
		mergePosition(&a.pos, v.Position)
		mergeTime(&a.tm, v.Time)
	case nmea.GSA:
		mergePosition(&a.pos, v.Position)
	case nmea.GST:
		mergePosition(&a.pos, v.Position)
		mergeTime(&a.tm, v.Time)
	case nmea.GSV:
		if sats := a.addGSV(v, now); sats != nil {
			return Epoch{Satellites: sats}
		}
	case nmea.Unknown, nmea.BadChecksum:
	}
	return Epoch{}
}

func (a *Accumulator) emit(now uint64) Epoch {
	var out Epoch
	if a.tm.Validity != 0 {
		tm := a.tm
		tm.Timestamp = now
		out.Time = &tm
	}
	if a.pos.Validity != 0 {
		pos := a.pos
		pos.Timestamp = now
		pos.FixTypeBits = reading.FixTypeSingleFrequency
		pos.ActivatedSystems = reading.SystemGPS
		pos.UsedSystems = reading.SystemGPS
		pos.Validity |= reading.PosFixType | reading.PosActivatedSystems | reading.PosUsedSystems
		out.Position = &pos
	}
	a.pos = reading.Position{}
	a.tm = reading.Time{}
	return out
}

// addGSV tracks one sequence per satellite system. A part out of order
// drops the sequence.
func (a *Accumulator) addGSV(g nmea.GSV, now uint64) []reading.SatelliteDetail {
	if g.TotalMessages <= 0 {
		return nil
	}
	sys := g.System
	if a.pending == nil {
		a.pending = make(map[reading.System]*gsvSequence)
	}
	seq := a.pending[sys]
	if g.MessageNumber == 1 || seq == nil {
		if g.MessageNumber != 1 {
			return nil
		}
		seq = &gsvSequence{next: 1, total: g.TotalMessages}
		a.pending[sys] = seq
	}
	if g.MessageNumber != seq.next || g.TotalMessages != seq.total {
		delete(a.pending, sys)
		return nil
	}
	seq.sats = append(seq.sats, g.Satellites...)
	seq.next++
	if !g.Last() {
		return nil
	}
	delete(a.pending, sys)
	for i := range seq.sats {
		seq.sats[i].Timestamp = now
	}
	return seq.sats
}

func mergeTime(dst *reading.Time, src reading.Time) {
	if src.Validity&reading.TimeTime != 0 {
		dst.Hour, dst.Minute, dst.Second, dst.Millisecond = src.Hour, src.Minute, src.Second, src.Millisecond
	}
	if src.Validity&reading.TimeDate != 0 {
		dst.Year, dst.Month, dst.Day = src.Year, src.Month, src.Day
	}
	if src.Validity&reading.TimeScaleValid != 0 {
		dst.Scale = src.Scale
	}
	if src.Validity&reading.TimeLeapSeconds != 0 {
		dst.LeapSeconds = src.LeapSeconds
	}
	dst.Validity |= src.Validity
}

// mergePosition copies each field whose bit src sets. FixStatus keeps the
// best value seen in the epoch.
func mergePosition(dst *reading.Position, src reading.Position) {
	for _, f := range positionFields {
		if src.Validity&f.bit != 0 {
			f.copy(dst, &src)
		}
	}
	if src.Validity&reading.PosFixStatus != 0 {
		if dst.Validity&reading.PosFixStatus == 0 || src.FixStatus > dst.FixStatus {
			dst.FixStatus = src.FixStatus
		}
	}
	dst.Validity |= src.Validity
}

var positionFields = []struct {
	bit  reading.PositionValidity
	copy func(dst, src *reading.Position)
}{
	{reading.PosLatitude, func(d, s *reading.Position) { d.Latitude = s.Latitude }},
	{reading.PosLongitude, func(d, s *reading.Position) { d.Longitude = s.Longitude }},
	{reading.PosAltitudeMSL, func(d, s *reading.Position) { d.AltitudeMSL = s.AltitudeMSL }},
	{reading.PosAltitudeEll, func(d, s *reading.Position) { d.AltitudeEll = s.AltitudeEll }},
	{reading.PosHSpeed, func(d, s *reading.Position) { d.HSpeed = s.HSpeed }},
	{reading.PosVSpeed, func(d, s *reading.Position) { d.VSpeed = s.VSpeed }},
	{reading.PosHeading, func(d, s *reading.Position) { d.Heading = s.Heading }},
	{reading.PosPDOP, func(d, s *reading.Position) { d.PDOP = s.PDOP }},
	{reading.PosHDOP, func(d, s *reading.Position) { d.HDOP = s.HDOP }},
	{reading.PosVDOP, func(d, s *reading.Position) { d.VDOP = s.VDOP }},
	{reading.PosUsedSatellites, func(d, s *reading.Position) { d.UsedSatellites = s.UsedSatellites }},
	{reading.PosTrackedSatellites, func(d, s *reading.Position) { d.TrackedSatellites = s.TrackedSatellites }},
	{reading.PosVisibleSatellites, func(d, s *reading.Position) { d.VisibleSatellites = s.VisibleSatellites }},
	{reading.PosSigmaHPosition, func(d, s *reading.Position) { d.SigmaHPosition = s.SigmaHPosition }},
	{reading.PosSigmaAltitude, func(d, s *reading.Position) { d.SigmaAltitude = s.SigmaAltitude }},
	{reading.PosSigmaHSpeed, func(d, s *reading.Position) { d.SigmaHSpeed = s.SigmaHSpeed }},
	{reading.PosSigmaVSpeed, func(d, s *reading.Position) { d.SigmaVSpeed = s.SigmaVSpeed }},
	{reading.PosSigmaHeading, func(d, s *reading.Position) { d.SigmaHeading = s.SigmaHeading }},
	{reading.PosFixType, func(d, s *reading.Position) { d.FixTypeBits = s.FixTypeBits }},
	{reading.PosActivatedSystems, func(d, s *reading.Position) { d.ActivatedSystems = s.ActivatedSystems }},
	{reading.PosUsedSystems, func(d, s *reading.Position) { d.UsedSystems = s.UsedSystems }},
}

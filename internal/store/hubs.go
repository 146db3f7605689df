package store

import "positioning-ng/internal/reading"

// GNSS groups the channels fed by a GNSS backend.
type GNSS struct {
	Position   *Channel[reading.Position]
	Time       *Channel[reading.Time]
	Status     *Channel[reading.GNSSStatus]
	Satellites *Channel[reading.SatelliteDetail]
}

func NewGNSS(opts ...Option) *GNSS {
	return &GNSS{
		Position:   NewChannel[reading.Position]("gnss.position", opts...),
		Time:       NewChannel[reading.Time]("gnss.time", opts...),
		Status:     NewChannel[reading.GNSSStatus]("gnss.status", opts...),
		Satellites: NewChannel[reading.SatelliteDetail]("gnss.satellites", opts...),
	}
}

// SetStatus publishes a single status reading.
func (g *GNSS) SetStatus(ts uint64, s reading.Status) {
	g.Status.Update([]reading.GNSSStatus{{
		Timestamp: ts,
		Status:    s,
		Validity:  reading.GNSSStatusStatus,
	}})
}

// Sensors groups the channels fed by a sensor backend.
type Sensors struct {
	Acceleration *Channel[reading.Acceleration]
	Gyroscope    *Channel[reading.Gyroscope]
	WheelTicks   *Channel[reading.WheelTicks]
	VehicleSpeed *Channel[reading.VehicleSpeed]
	Status       *Channel[reading.SensorStatus]
}

func NewSensors(opts ...Option) *Sensors {
	return &Sensors{
		Acceleration: NewChannel[reading.Acceleration]("sensors.acceleration", opts...),
		Gyroscope:    NewChannel[reading.Gyroscope]("sensors.gyroscope", opts...),
		WheelTicks:   NewChannel[reading.WheelTicks]("sensors.wheelticks", opts...),
		VehicleSpeed: NewChannel[reading.VehicleSpeed]("sensors.vehiclespeed", opts...),
		Status:       NewChannel[reading.SensorStatus]("sensors.status", opts...),
	}
}

func (s *Sensors) SetStatus(ts uint64, st reading.Status) {
	s.Status.Update([]reading.SensorStatus{{
		Timestamp: ts,
		Status:    st,
		Validity:  reading.SensorStatusStatus,
	}})
}

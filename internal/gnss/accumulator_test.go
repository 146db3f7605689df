package gnss

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"positioning-ng/internal/nmea"
	"positioning-ng/internal/reading"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X", payload, ck)
}

func decodeAll(t *testing.T, payloads ...string) []nmea.Sentence {
	t.Helper()
	d := nmea.NewDecoder()
	var out []nmea.Sentence
	for _, p := range payloads {
		out = append(out, d.Decode(nmeaLine(p)))
	}
	return out
}

func TestAccumulator_RMCClosesEpoch(t *testing.T) {
	ss := decodeAll(t,
		"GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
		"GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1",
		"GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W",
	)
	var a Accumulator
	require.Nil(t, a.Apply(ss[0], 1).Position)
	require.Nil(t, a.Apply(ss[1], 2).Position)
	ep := a.Apply(ss[2], 3)

	require.NotNil(t, ep.Position)
	p := *ep.Position
	require.Equal(t, uint64(3), p.Timestamp)
	require.True(t, p.Has(reading.PosLatitude|reading.PosLongitude|reading.PosAltitudeMSL|reading.PosAltitudeEll))
	require.True(t, p.Has(reading.PosHSpeed|reading.PosHeading|reading.PosPDOP|reading.PosHDOP|reading.PosVDOP))
	require.True(t, p.Has(reading.PosFixType|reading.PosActivatedSystems|reading.PosUsedSystems))
	require.InDelta(t, 545.4, p.AltitudeMSL, 1e-3)
	require.InDelta(t, 1.3, p.HDOP, 1e-6, "later fragment wins")
	require.Equal(t, reading.Fix3D, p.FixStatus, "best fix of the epoch")
	require.Equal(t, reading.FixTypeSingleFrequency, p.FixTypeBits)
	require.Equal(t, reading.SystemGPS, p.UsedSystems)

	require.NotNil(t, ep.Time)
	tm := *ep.Time
	require.True(t, tm.Has(reading.TimeTime|reading.TimeDate))
	require.Equal(t, uint16(2024), tm.Year)
	require.Equal(t, uint8(2), tm.Month)
	require.Equal(t, uint8(23), tm.Day)
	require.Equal(t, uint8(12), tm.Hour)
}

func TestAccumulator_NoCarryOverBetweenEpochs(t *testing.T) {
	ss := decodeAll(t,
		"GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
		"GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W",
		"GPRMC,123520,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W",
	)
	var a Accumulator
	a.Apply(ss[0], 1)
	require.True(t, a.Apply(ss[1], 2).Position.Has(reading.PosAltitudeMSL))
	ep := a.Apply(ss[2], 3)
	require.NotNil(t, ep.Position)
	require.False(t, ep.Position.Has(reading.PosAltitudeMSL))
	require.Equal(t, reading.Fix2D, ep.Position.FixStatus)
}

func TestAccumulator_GSVSequence(t *testing.T) {
	ss := decodeAll(t,
		"GPGSV,2,1,06,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45",
		"GLGSV,1,1,01,65,10,100,30",
		"GPGSV,2,2,06,15,30,050,40,16,60,120,",
	)
	var a Accumulator
	require.Empty(t, a.Apply(ss[0], 1).Satellites)

	gl := a.Apply(ss[1], 2).Satellites
	require.Len(t, gl, 1)
	require.Equal(t, reading.SystemGLONASS, gl[0].System)

	gp := a.Apply(ss[2], 3).Satellites
	require.Len(t, gp, 6)
	for _, s := range gp {
		require.Equal(t, uint64(3), s.Timestamp)
		require.Equal(t, reading.SystemGPS, s.System)
	}
	require.Equal(t, uint16(16), gp[5].SatelliteID)
	require.Zero(t, gp[5].Validity&reading.SatSNR)
}

func TestAccumulator_GSVOutOfOrderDropped(t *testing.T) {
	ss := decodeAll(t,
		"GPGSV,3,1,09,01,40,083,46",
		"GPGSV,3,3,09,02,17,308,41",
		"GPGSV,3,2,09,12,07,344,39",
	)
	var a Accumulator
	for i, s := range ss {
		require.Empty(t, a.Apply(s, uint64(i)).Satellites)
	}
}

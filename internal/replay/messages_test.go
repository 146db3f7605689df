package replay

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"positioning-ng/internal/reading"
)

func decodeLine(t *testing.T, line string) (Message, error) {
	t.Helper()
	f, err := ParseFrame([]byte(line))
	require.NoError(t, err)
	return DecodeMessage(f)
}

func TestDecodeMessage_Position(t *testing.T) {
	m, err := decodeLine(t, "061064000,0$GVGNSP,061064000,49.02657,12.06527,336.70000,0X07")
	require.NoError(t, err)
	p := m.(PositionMessage).Position
	require.Equal(t, uint64(61064000), p.Timestamp)
	require.InDelta(t, 49.02657, p.Latitude, 1e-9)
	require.InDelta(t, 12.06527, p.Longitude, 1e-9)
	require.InDelta(t, 336.7, float64(p.AltitudeMSL), 1e-4)
	require.Equal(t, reading.PosLatitude|reading.PosLongitude|reading.PosAltitudeMSL, p.Validity)
}

func TestDecodeMessage_CourseMapsLegacyBits(t *testing.T) {
	m, err := decodeLine(t, "10,0$GVGNSC,10,12.5,-0.5,271.0,0X05")
	require.NoError(t, err)
	p := m.(CourseMessage).Position
	require.Equal(t, reading.PosHSpeed|reading.PosHeading, p.Validity)
	require.InDelta(t, 271.0, float64(p.Heading), 1e-6)
}

func TestDecodeMessage_Accuracy(t *testing.T) {
	m, err := decodeLine(t, "10,0$GVGNSAC,10,1.9,1.1,1.5,7,9,12,3.0,2.5,4.0,2,0X1,0X7FF")
	require.NoError(t, err)
	p := m.(AccuracyMessage).Position
	require.InDelta(t, 2.5, float64(p.SigmaHPosition), 1e-6, "second sigma field wins")
	require.Equal(t, reading.Fix3D, p.FixStatus)
	require.Equal(t, reading.FixTypeSingleFrequency, p.FixTypeBits)
	require.Equal(t, uint16(7), p.UsedSatellites)
	want := reading.PosPDOP | reading.PosHDOP | reading.PosVDOP | reading.PosUsedSatellites |
		reading.PosTrackedSatellites | reading.PosVisibleSatellites | reading.PosSigmaHPosition |
		reading.PosSigmaAltitude | reading.PosFixStatus | reading.PosFixType
	require.Equal(t, want, p.Validity, "legacy bit 0x80 has no mapping")
}

func TestDecodeMessage_AccuracyFixOrder(t *testing.T) {
	cases := map[string]reading.FixStatus{"0": reading.FixNo, "1": reading.Fix2D, "2": reading.Fix3D, "3": reading.FixTime}
	for in, want := range cases {
		m, err := decodeLine(t, "1,0$GVGNSAC,1,0,0,0,0,0,0,0,0,0,"+in+",0,0X200")
		require.NoError(t, err)
		require.Equal(t, want, m.(AccuracyMessage).Position.FixStatus, "fix %s", in)
	}
}

func TestDecodeMessage_Satellite(t *testing.T) {
	m, err := decodeLine(t, "5,0$GVGNSSAT,5,1,17,120,45,38,0X1,0X3F")
	require.NoError(t, err)
	s := m.(SatelliteMessage).Satellite
	require.Equal(t, reading.SystemGPS, s.System)
	require.Equal(t, uint16(17), s.SatelliteID)
	require.Equal(t, reading.SatUsed, s.StatusBits)
	require.Equal(t, reading.SatelliteValidity(0x3F), s.Validity)
}

func TestDecodeMessage_SensorMessages(t *testing.T) {
	m, err := decodeLine(t, "5,0$GVSNSGYRO,5,0.5,-0.25,0.125,31.0,0XFF")
	require.NoError(t, err)
	g := m.(GyroMessage).Gyroscope
	require.Equal(t, reading.GyroYaw|reading.GyroPitch|reading.GyroRoll|reading.GyroTemp, g.Validity)
	require.InDelta(t, -0.25, float64(g.PitchRate), 1e-6)

	m, err = decodeLine(t, "6,0$GVSNSACC,6,0.01,0.02,-1.0,30.5,0X7")
	require.NoError(t, err)
	a := m.(AccelerationMessage).Acceleration
	require.Equal(t, reading.AccelX|reading.AccelY|reading.AccelZ, a.Validity)

	m, err = decodeLine(t, "7,0$GVSNSVEHSP,7,13.9,0X1")
	require.NoError(t, err)
	v := m.(VehicleSpeedMessage).VehicleSpeed
	require.Equal(t, reading.VehicleSpeedValid, v.Validity)
	require.InDelta(t, 13.9, float64(v.Speed), 1e-5)
}

func TestDecodeMessage_WheelTicks(t *testing.T) {
	m, err := decodeLine(t, "8,0$GVSNSWHTK,8,7,1000,8,1002,0,0")
	require.NoError(t, err)
	w := m.(WheelTickMessage).WheelTicks
	require.Equal(t, uint8(3), w.Count)
	require.Equal(t, reading.Wheel1|reading.Wheel2, w.Validity)
	require.Equal(t, reading.WheelLeftRear, w.Elements[0].ID)
	require.Equal(t, uint32(1002), w.Elements[1].Counter)

	m, err = decodeLine(t, "8,0$GVSNSWHTK,8,3,55")
	require.NoError(t, err)
	require.Equal(t, uint8(1), m.(WheelTickMessage).WheelTicks.Count)

	_, err = decodeLine(t, "8,0$GVSNSWHTK,8,42,55")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeMessage_Errors(t *testing.T) {
	_, err := decodeLine(t, "1,0$GVGNSP,1,49.0,12.0")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = decodeLine(t, "1,0$GVGNSP,1,north,12.0,300.0,0X07")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = decodeLine(t, "1,0$GVGNSP,1,49.0,12.0,300.0,0XZZ")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = decodeLine(t, "1,0$GVVEHVER,1,2")
	require.True(t, errors.Is(err, ErrUnknownMessage))
}

func TestDecodeMessage_NaNIsParsed(t *testing.T) {
	m, err := decodeLine(t, "1,0$GVGNSP,1,NaN,12.0,300.0,0X02")
	require.NoError(t, err)
	p := m.(PositionMessage).Position
	require.True(t, math.IsNaN(p.Latitude))
	require.Equal(t, reading.PosLongitude, p.Validity)
}

package replay

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
)

func TestGNSSDispatcher_EndToEndPosition(t *testing.T) {
	hub := store.NewGNSS()
	var got [][]reading.Position
	hub.Position.Register(func(b []reading.Position) { got = append(got, b) })

	d := NewGNSSDispatcher(hub)
	require.NoError(t, d.Feed([]byte("061064000,0$GVGNSP,061064000,49.02657,12.06527,336.70000,0X07\x00")))

	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	p, ok := hub.Position.Latest()
	require.True(t, ok)
	require.InDelta(t, 49.02657, p.Latitude, 1e-9)
	require.InDelta(t, 12.06527, p.Longitude, 1e-9)
	require.InDelta(t, 336.7, float64(p.AltitudeMSL), 1e-4)
	require.Equal(t, reading.PositionValidity(0x07), p.Validity)
}

func TestGNSSDispatcher_MessagesDoNotMerge(t *testing.T) {
	hub := store.NewGNSS()
	d := NewGNSSDispatcher(hub)
	require.NoError(t, d.Feed([]byte("1,0$GVGNSP,1,49.0,12.0,300.0,0X07")))
	require.NoError(t, d.Feed([]byte("2,0$GVGNSC,2,10.0,0.0,90.0,0X07")))

	p, _ := hub.Position.Latest()
	require.Equal(t, reading.PosHSpeed|reading.PosVSpeed|reading.PosHeading, p.Validity)
	require.Zero(t, p.Latitude)
}

func TestGNSSDispatcher_MalformedLeavesOtherBuffersAlone(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	hub := store.NewGNSS()
	var sats [][]reading.SatelliteDetail
	hub.Satellites.Register(func(b []reading.SatelliteDetail) { sats = append(sats, b) })

	d := NewGNSSDispatcher(hub, WithMetrics(m))
	require.NoError(t, d.Feed([]byte("1,1$GVGNSSAT,1,1,5,10,20,30,0X1,0X3F")))
	require.ErrorIs(t, d.Feed([]byte("1,0$GVGNSP,1,bad")), ErrMalformed)
	require.ErrorIs(t, d.Feed([]byte("garbage")), ErrMalformed)
	require.NoError(t, d.Feed([]byte("2,0$GVGNSSAT,2,1,6,11,21,31,0X0,0X3F")))

	require.Len(t, sats, 1)
	require.Len(t, sats[0], 2)
	require.Equal(t, uint16(5), sats[0][0].SatelliteID)

	n, err := testutil.GatherAndCount(reg, "positioning_protocol_errors_total")
	require.NoError(t, err)
	require.Equal(t, 1, n, "one series: replay_gnss/malformed")
}

func TestGNSSDispatcher_ReassemblyResetCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	hub := store.NewGNSS()
	d := NewGNSSDispatcher(hub, WithMetrics(m))

	require.NoError(t, d.Feed([]byte("1,2$GVGNSP,1,49.0,12.0,300.0,0X07")))
	require.NoError(t, d.Feed([]byte("2,0$GVGNSP,2,49.0,12.0,300.0,0X07")))

	p, _ := hub.Position.Latest()
	require.Zero(t, p.Validity, "gap must not deliver")
	n, err := testutil.GatherAndCount(reg, "positioning_replay_reassembly_resets_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGNSSDispatcher_RejectsSensorMessages(t *testing.T) {
	d := NewGNSSDispatcher(store.NewGNSS())
	err := d.Feed([]byte("1,0$GVSNSVEHSP,1,3.0,0X1"))
	require.True(t, errors.Is(err, ErrWrongFamily))
}

func TestSensorsDispatcher_Bursts(t *testing.T) {
	hub := store.NewSensors()
	var gyro [][]reading.Gyroscope
	hub.Gyroscope.Register(func(b []reading.Gyroscope) { gyro = append(gyro, b) })
	d := NewSensorsDispatcher(hub, WithCapacity(4))

	for _, line := range []string{
		"100,2$GVSNSGYRO,90,0.1,0.2,0.3,25.0,0X0F",
		"100,1$GVSNSGYRO,95,0.1,0.2,0.3,25.0,0X0F",
		"100,0$GVSNSGYRO,100,0.1,0.2,0.4,25.0,0X0F",
		"100,0$GVSNSWHTK,100,5,10,6,11,7,12,8,13",
		"100,0$GVSNSVEHSP,100,8.5,0X1",
	} {
		require.NoError(t, d.Feed([]byte(line)))
	}

	require.Len(t, gyro, 1)
	require.Len(t, gyro[0], 3)
	g, _ := hub.Gyroscope.Latest()
	require.Equal(t, uint64(100), g.Timestamp)

	w, _ := hub.WheelTicks.Latest()
	require.Equal(t, uint8(4), w.Count)
	require.Equal(t, reading.Wheel1|reading.Wheel2|reading.Wheel3|reading.Wheel4, w.Validity)

	v, _ := hub.VehicleSpeed.Latest()
	require.InDelta(t, 8.5, float64(v.Speed), 1e-6)

	require.ErrorIs(t, d.Feed([]byte("100,0$GVGNSP,1,49.0,12.0,300.0,0X07")), ErrWrongFamily)
	require.ErrorIs(t, d.Feed([]byte("100,0$GVVEHVER,1")), ErrUnknownMessage)
}

package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/config"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
	"positioning-ng/internal/udp"
)

func testDeps() deps {
	return deps{
		log:     zap.NewNop().Sugar(),
		clk:     clock.New(nil),
		gnss:    store.NewGNSS(),
		sensors: store.NewSensors(),
	}
}

func freeUDPAddr(t *testing.T) string {
	t.Helper()
	c, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := c.LocalAddr().String()
	require.NoError(t, c.Close())
	return addr
}

func TestBuildDrivers_Sources(t *testing.T) {
	cases := []struct {
		gnss, sensors string
		want          []string
	}{
		{"nmea", "none", []string{"gnss.nmea"}},
		{"gpsd", "imu", []string{"gnss.gpsd", "sensors.imu"}},
		{"replay", "replay", []string{"gnss.replay", "sensors.replay"}},
		{"none", "none", nil},
	}
	for _, tc := range cases {
		var cfg config.Config
		cfg.GNSS.Source = tc.gnss
		cfg.Sensors.Source = tc.sensors
		runners, err := buildDrivers(cfg, testDeps())
		require.NoError(t, err)
		var names []string
		for _, r := range runners {
			names = append(names, r.Name())
		}
		require.Equal(t, tc.want, names)
	}

	var cfg config.Config
	cfg.GNSS.Source = "galileo"
	_, err := buildDrivers(cfg, testDeps())
	require.Error(t, err)
}

func TestReplayPipeline(t *testing.T) {
	var cfg config.Config
	cfg.GNSS.Source = "replay"
	cfg.GNSS.Replay.ListenAddr = freeUDPAddr(t)
	cfg.Sensors.Source = "none"

	d := testDeps()
	subscribe(d.log, d.gnss, d.sensors)
	runners, err := buildDrivers(cfg, d)
	require.NoError(t, err)
	require.Len(t, runners, 1)
	r := runners[0]
	require.NoError(t, r.Init())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	s, err := udp.NewSender(cfg.GNSS.Replay.ListenAddr)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte("5,1$GVGNSSAT,5,1,7,10,20,30,0X1,0X3F\x00")))
	require.NoError(t, s.Send([]byte("5,0$GVGNSSAT,5,1,8,11,21,31,0X0,0X3F\x00")))

	deadline := time.Now().Add(2 * time.Second)
	for {
		var sat reading.SatelliteDetail
		if d.gnss.Satellites.Get(&sat) && sat.Validity != 0 {
			require.Equal(t, uint16(8), sat.SatelliteID)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("satellites not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, r.Stop())
}

package gnss

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch enables JSON streaming reports.
func gpsdWatch(conn net.Conn) error {
	// scaled=true yields SI units (m/s, meters) and degrees.
	_, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true,\"scaled\":true}\n"))
	return err
}

type gpsdMsgBase struct {
	Class string `json:"class"`
}

type gpsdTPV struct {
	Class       string `json:"class"`
	Mode        *int   `json:"mode"`
	Time        string `json:"time"`
	LeapSeconds *int   `json:"leapseconds"`

	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`

	Alt     *float64 `json:"alt"`
	AltMSL  *float64 `json:"altMSL"`
	AltHAE  *float64 `json:"altHAE"`
	SpeedMS *float64 `json:"speed"`
	Track   *float64 `json:"track"`
	ClimbMS *float64 `json:"climb"`

	// Estimated errors when available.
	Epx *float64 `json:"epx"`
	Epy *float64 `json:"epy"`
	Eph *float64 `json:"eph"`
	Epv *float64 `json:"epv"`
	Eps *float64 `json:"eps"`
	Epc *float64 `json:"epc"`
	Epd *float64 `json:"epd"`
}

type gpsdSat struct {
	PRN    int      `json:"PRN"`
	GnssID *int     `json:"gnssid"`
	Az     *float64 `json:"az"`
	El     *float64 `json:"el"`
	SS     *float64 `json:"ss"`
	Used   bool     `json:"used"`
}

type gpsdSKY struct {
	Class      string    `json:"class"`
	PDOP       *float64  `json:"pdop"`
	HDOP       *float64  `json:"hdop"`
	VDOP       *float64  `json:"vdop"`
	NSat       *int      `json:"nSat"`
	USat       *int      `json:"uSat"`
	Satellites []gpsdSat `json:"satellites"`
}

// gpsdReport is what one gpsd line produced.
type gpsdReport struct {
	Position   *reading.Position
	Time       *reading.Time
	Satellites []reading.SatelliteDetail
}

func parseGPSDLine(now uint64, line string) (gpsdReport, error) {
	var base gpsdMsgBase
	if err := json.Unmarshal([]byte(line), &base); err != nil {
		return gpsdReport{}, fmt.Errorf("gpsd json parse failed: %w", err)
	}

	switch strings.ToUpper(strings.TrimSpace(base.Class)) {
	case "TPV":
		var tpv gpsdTPV
		if err := json.Unmarshal([]byte(line), &tpv); err != nil {
			return gpsdReport{}, fmt.Errorf("gpsd tpv parse failed: %w", err)
		}
		return tpvReport(now, tpv), nil
	case "SKY":
		var sky gpsdSKY
		if err := json.Unmarshal([]byte(line), &sky); err != nil {
			return gpsdReport{}, fmt.Errorf("gpsd sky parse failed: %w", err)
		}
		return skyReport(now, sky), nil
	default:
		// VERSION, DEVICES, WATCH and friends.
		return gpsdReport{}, nil
	}
}

func tpvReport(now uint64, tpv gpsdTPV) gpsdReport {
	var out gpsdReport
	p := reading.Position{Timestamp: now}

	mode := 0
	if tpv.Mode != nil {
		mode = *tpv.Mode
		switch {
		case mode >= 3:
			p.FixStatus = reading.Fix3D
		case mode == 2:
			p.FixStatus = reading.Fix2D
		case mode == 1:
			p.FixStatus = reading.FixTime
		default:
			p.FixStatus = reading.FixNo
		}
		p.Validity |= reading.PosFixStatus
	}
	if mode >= 2 {
		if tpv.Lat != nil {
			p.Latitude = *tpv.Lat
			p.Validity |= reading.PosLatitude
		}
		if tpv.Lon != nil {
			p.Longitude = *tpv.Lon
			p.Validity |= reading.PosLongitude
		}
	}
	if mode >= 3 {
		altM := tpv.AltMSL
		if altM == nil {
			altM = tpv.Alt
		}
		if altM != nil {
			p.AltitudeMSL = float32(*altM)
			p.Validity |= reading.PosAltitudeMSL
		}
		if tpv.AltHAE != nil {
			p.AltitudeEll = float32(*tpv.AltHAE)
			p.Validity |= reading.PosAltitudeEll
		}
	}

	if tpv.SpeedMS != nil {
		p.HSpeed = float32(*tpv.SpeedMS)
		p.Validity |= reading.PosHSpeed
	}
	if tpv.ClimbMS != nil {
		p.VSpeed = float32(*tpv.ClimbMS)
		p.Validity |= reading.PosVSpeed
	}
	if tpv.Track != nil {
		p.Heading = float32(*tpv.Track)
		p.Validity |= reading.PosHeading
	}

	if tpv.Eph != nil {
		p.SigmaHPosition = float32(*tpv.Eph)
		p.Validity |= reading.PosSigmaHPosition
	} else if tpv.Epx != nil && tpv.Epy != nil {
		p.SigmaHPosition = float32(math.Sqrt((*tpv.Epx)*(*tpv.Epx) + (*tpv.Epy)*(*tpv.Epy)))
		p.Validity |= reading.PosSigmaHPosition
	}
	if tpv.Epv != nil {
		p.SigmaAltitude = float32(*tpv.Epv)
		p.Validity |= reading.PosSigmaAltitude
	}
	if tpv.Eps != nil {
		p.SigmaHSpeed = float32(*tpv.Eps)
		p.Validity |= reading.PosSigmaHSpeed
	}
	if tpv.Epc != nil {
		p.SigmaVSpeed = float32(*tpv.Epc)
		p.Validity |= reading.PosSigmaVSpeed
	}
	if tpv.Epd != nil {
		p.SigmaHeading = float32(*tpv.Epd)
		p.Validity |= reading.PosSigmaHeading
	}
	if p.Validity != 0 {
		out.Position = &p
	}

	if s := strings.TrimSpace(tpv.Time); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t = t.UTC()
			tm := reading.Time{
				Timestamp:   now,
				Year:        uint16(t.Year()),
				Month:       uint8(t.Month() - 1),
				Day:         uint8(t.Day()),
				Hour:        uint8(t.Hour()),
				Minute:      uint8(t.Minute()),
				Second:      uint8(t.Second()),
				Millisecond: uint16(t.Nanosecond() / int(time.Millisecond)),
				Scale:       reading.ScaleUTC,
				Validity:    reading.TimeTime | reading.TimeDate | reading.TimeScaleValid,
			}
			if tpv.LeapSeconds != nil {
				tm.LeapSeconds = int8(*tpv.LeapSeconds)
				tm.Validity |= reading.TimeLeapSeconds
			}
			out.Time = &tm
		}
	}
	return out
}

// gnssid values from the u-blox numbering gpsd reports.
func gpsdSystem(id *int) (reading.System, bool) {
	if id == nil {
		return reading.SystemGPS, true
	}
	switch *id {
	case 0:
		return reading.SystemGPS, true
	case 2:
		return reading.SystemGalileo, true
	case 3:
		return reading.SystemBeidou, true
	case 6:
		return reading.SystemGLONASS, true
	}
	return 0, false
}

func skyReport(now uint64, sky gpsdSKY) gpsdReport {
	var out gpsdReport
	used := 0
	for _, s := range sky.Satellites {
		sat := reading.SatelliteDetail{
			Timestamp:   now,
			SatelliteID: uint16(s.PRN),
			Validity:    reading.SatID | reading.SatUsedFlag,
		}
		if sys, ok := gpsdSystem(s.GnssID); ok {
			sat.System = sys
			sat.Validity |= reading.SatSystem
		}
		if s.Az != nil && *s.Az >= 0 {
			sat.Azimuth = uint16(math.Round(*s.Az))
			sat.Validity |= reading.SatAzimuth
		}
		if s.El != nil && *s.El >= 0 {
			sat.Elevation = uint16(math.Round(*s.El))
			sat.Validity |= reading.SatElevation
		}
		if s.SS != nil && *s.SS >= 0 {
			sat.SNR = uint16(math.Round(*s.SS))
			sat.Validity |= reading.SatSNR
		}
		if s.Used {
			sat.StatusBits |= reading.SatUsed
			used++
		}
		out.Satellites = append(out.Satellites, sat)
	}

	p := reading.Position{Timestamp: now}
	switch {
	case sky.USat != nil:
		p.UsedSatellites = uint16(*sky.USat)
		p.Validity |= reading.PosUsedSatellites
	case len(sky.Satellites) > 0:
		p.UsedSatellites = uint16(used)
		p.Validity |= reading.PosUsedSatellites
	}
	switch {
	case sky.NSat != nil:
		p.VisibleSatellites = uint16(*sky.NSat)
		p.Validity |= reading.PosVisibleSatellites
	case len(sky.Satellites) > 0:
		p.VisibleSatellites = uint16(len(sky.Satellites))
		p.Validity |= reading.PosVisibleSatellites
	}
	if sky.PDOP != nil {
		p.PDOP = float32(*sky.PDOP)
		p.Validity |= reading.PosPDOP
	}
	if sky.HDOP != nil {
		p.HDOP = float32(*sky.HDOP)
		p.Validity |= reading.PosHDOP
	}
	if sky.VDOP != nil {
		p.VDOP = float32(*sky.VDOP)
		p.Validity |= reading.PosVDOP
	}
	if p.Validity != 0 {
		out.Position = &p
	}
	return out
}

// GPSDBackend follows gpsd's JSON watch stream. A lost connection is fatal;
// the service decides whether to re-init.
type GPSDBackend struct {
	addr string
	hub  *store.GNSS
	clk  *clock.Source
	log  *zap.SugaredLogger

	mu   sync.Mutex
	conn net.Conn
}

func NewGPSDBackend(addr string, hub *store.GNSS, clk *clock.Source, log *zap.SugaredLogger) *GPSDBackend {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GPSDBackend{addr: addr, hub: hub, clk: clk, log: log}
}

func (b *GPSDBackend) Metadata() reading.GNSSMetadata { return gnssMetadata() }

func (b *GPSDBackend) Open() error {
	conn, err := dialGPSD(context.Background(), b.addr)
	if err != nil {
		return fmt.Errorf("gnss: gpsd dial %s: %w", b.addr, err)
	}
	if err := gpsdWatch(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("gnss: gpsd watch: %w", err)
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusInitializing)
	b.log.Infow("gpsd connected", "addr", b.addr)
	return nil
}

func (b *GPSDBackend) Run(ctx context.Context) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("gnss: gpsd not connected")
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	available := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rep, err := parseGPSDLine(b.clk.NowMs(), line)
		if err != nil {
			b.log.Debugw("gpsd line dropped", "err", err)
			continue
		}
		if rep.Time != nil {
			b.hub.Time.Update([]reading.Time{*rep.Time})
		}
		if rep.Position != nil {
			b.hub.Position.Update([]reading.Position{*rep.Position})
		}
		if len(rep.Satellites) > 0 {
			b.hub.Satellites.Update(rep.Satellites)
		}
		if !available && (rep.Position != nil || rep.Time != nil) {
			available = true
			b.hub.SetStatus(b.clk.NowMs(), reading.StatusAvailable)
		}
	}
	if ctx.Err() != nil {
		b.hub.SetStatus(b.clk.NowMs(), reading.StatusNotAvailable)
		return nil
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusFailure)
	return fmt.Errorf("gnss: gpsd receive: %w", err)
}

func (b *GPSDBackend) Interrupt() error { return b.Close() }

func (b *GPSDBackend) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

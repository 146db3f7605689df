package nmea

import (
	"fmt"
	"math"
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
)

const knotsToMps = 1.852 / 3.6

// Stats counts decoded sentences by kind.
type Stats struct {
	RMC, GGA, GSA, GST, GSV uint64
	Unknown, BadChecksum    uint64
}

type Option func(*Decoder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// Decoder turns NMEA lines into Sentence values. It is not safe for
// concurrent use; each backend owns one.
type Decoder struct {
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	limiter *rate.Limiter
	stats   Stats
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		log:     zap.NewNop().Sugar(),
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Stats() Stats { return d.stats }

// Decode decodes one line. Surrounding whitespace is ignored.
func (d *Decoder) Decode(line string) Sentence {
	line = strings.TrimSpace(line)
	fr, ok := splitFrame(line)
	if !ok {
		d.stats.Unknown++
		d.protocolError("framing", line)
		return Unknown{}
	}
	fields := strings.Split(fr.payload, ",")
	id := strings.ToUpper(fields[0])
	if !fr.sumOK {
		d.stats.BadChecksum++
		d.protocolError("checksum", line)
		return BadChecksum{ID: id, Want: fr.want, Got: fr.got}
	}
	if len(id) != 5 {
		d.stats.Unknown++
		d.protocolError("unknown", line)
		return Unknown{ID: id}
	}
	talker, typ := id[:2], id[2:]
	switch {
	case typ == "RMC" && fixTalker(talker):
		d.stats.RMC++
		return decodeRMC(fields)
	case typ == "GGA" && fixTalker(talker):
		d.stats.GGA++
		return decodeGGA(fields)
	case typ == "GSA" && fixTalker(talker):
		d.stats.GSA++
		return decodeGSA(fields)
	case typ == "GST" && fixTalker(talker):
		d.stats.GST++
		return decodeGST(fields)
	case typ == "GSV":
		if sys, ok := talkerSystem(talker); ok {
			gsv, err := decodeGSV(fr.payload, fields, sys)
			if err == nil {
				d.stats.GSV++
				return gsv
			}
			d.protocolError("malformed", line)
		}
	}
	d.stats.Unknown++
	d.protocolError("unknown", line)
	return Unknown{ID: id}
}

func (d *Decoder) protocolError(kind, line string) {
	d.metrics.ProtocolError("nmea", kind)
	if d.limiter.Allow() {
		d.log.Debugw("nmea sentence dropped", "kind", kind, "line", line)
	}
}

// GP is GPS only, GN is a combined solution.
func fixTalker(t string) bool { return t == "GP" || t == "GN" }

func talkerSystem(t string) (reading.System, bool) {
	switch t {
	case "GP":
		return reading.SystemGPS, true
	case "GL":
		return reading.SystemGLONASS, true
	case "GA":
		return reading.SystemGalileo, true
	case "GB", "BD":
		return reading.SystemBeidou, true
	}
	return 0, false
}

func setClock(t *reading.Time, s string) {
	h, m, sec, ms, ok := parseClock(s)
	if !ok {
		return
	}
	t.Hour, t.Minute, t.Second, t.Millisecond = uint8(h), uint8(m), uint8(sec), uint16(ms)
	t.Scale = reading.ScaleUTC
	t.Validity |= reading.TimeTime | reading.TimeScaleValid
}

// RMC: Recommended Minimum Specific GNSS Data
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
func decodeRMC(f []string) RMC {
	var out RMC
	p := &out.Position
	setClock(&out.Time, field(f, 1))

	active := false
	if st := field(f, 2); st != "" {
		active = st[0] == 'A'
		if active {
			p.FixStatus = reading.Fix2D
		} else {
			p.FixStatus = reading.FixNo
		}
		p.Validity |= reading.PosFixStatus
	}
	if active {
		if lat, ok := parseCoord(field(f, 3), field(f, 4), 2); ok {
			p.Latitude = lat
			p.Validity |= reading.PosLatitude
		}
		if lon, ok := parseCoord(field(f, 5), field(f, 6), 3); ok {
			p.Longitude = lon
			p.Validity |= reading.PosLongitude
		}
		if kt, ok := parseFloat(field(f, 7)); ok {
			p.HSpeed = float32(kt * knotsToMps)
			p.Validity |= reading.PosHSpeed
		}
		if crs, ok := parseFloat(field(f, 8)); ok {
			p.Heading = float32(crs)
			p.Validity |= reading.PosHeading
		}
	}
	if y, m, dd, ok := parseDate(field(f, 9)); ok {
		out.Time.Year = uint16(y)
		out.Time.Month = uint8(m - 1)
		out.Time.Day = uint8(dd)
		out.Time.Validity |= reading.TimeDate
	}
	return out
}

// GGA: Global Positioning System Fix Data
//
//	0: talker+type
//	1: time
//	2: latitude
//	3: N/S
//	4: longitude
//	5: E/W
//	6: fix indicator (0=invalid, 1=GPS, 2=DGPS, 6=estimated)
//	7: satellites in use
//	8: HDOP
//	9: altitude above MSL
//	10: altitude unit (M)
//	11: geoid separation
//	12: geoid unit (M)
//
// Position and altitude are kept only when field 6 reports a fix.
func decodeGGA(f []string) GGA {
	var out GGA
	p := &out.Position
	setClock(&out.Time, field(f, 1))

	lat, latOK := parseCoord(field(f, 2), field(f, 3), 2)
	lon, lonOK := parseCoord(field(f, 4), field(f, 5), 3)

	fixed := false
	if q := field(f, 6); q != "" {
		switch q[0] {
		case '1', '2', '6':
			fixed = true
			p.FixStatus = reading.Fix2D
		default:
			p.FixStatus = reading.FixNo
		}
		p.Validity |= reading.PosFixStatus
	}
	if fixed && latOK {
		p.Latitude = lat
		p.Validity |= reading.PosLatitude
	}
	if fixed && lonOK {
		p.Longitude = lon
		p.Validity |= reading.PosLongitude
	}
	if n, ok := parseInt(field(f, 7)); ok && n >= 0 {
		p.UsedSatellites = uint16(n)
		p.Validity |= reading.PosUsedSatellites
	}
	if hdop, ok := parseFloat(field(f, 8)); ok {
		p.HDOP = float32(hdop)
		p.Validity |= reading.PosHDOP
	}

	alt, altOK := parseFloat(field(f, 9))
	if unit := field(f, 10); unit != "" && unit != "M" {
		altOK = false
	}
	if altOK && fixed {
		p.AltitudeMSL = float32(alt)
		p.Validity |= reading.PosAltitudeMSL

		geoid, geoidOK := parseFloat(field(f, 11))
		if unit := field(f, 12); unit != "" && unit != "M" {
			geoidOK = false
		}
		if geoidOK {
			p.AltitudeEll = float32(alt + geoid)
			p.Validity |= reading.PosAltitudeEll
		}
	}
	return out
}

// GSA: DOP and active satellites
//
//	1: selection mode (ignored)
//	2: fix mode (1=none, 2=2D, 3=3D)
//	3..14: ids of satellites in use
//	15: PDOP
//	16: HDOP
//	17: VDOP
func decodeGSA(f []string) GSA {
	var out GSA
	p := &out.Position
	if mode := field(f, 2); mode != "" {
		switch mode[0] {
		case '2':
			p.FixStatus = reading.Fix2D
		case '3':
			p.FixStatus = reading.Fix3D
		default:
			p.FixStatus = reading.FixNo
		}
		p.Validity |= reading.PosFixStatus
	}
	used := 0
	for i := 3; i <= 14; i++ {
		if field(f, i) != "" {
			used++
		}
	}
	if used > 0 {
		p.UsedSatellites = uint16(used)
		p.Validity |= reading.PosUsedSatellites
	}
	if v, ok := parseFloat(field(f, 15)); ok {
		p.PDOP = float32(v)
		p.Validity |= reading.PosPDOP
	}
	if v, ok := parseFloat(field(f, 16)); ok {
		p.HDOP = float32(v)
		p.Validity |= reading.PosHDOP
	}
	if v, ok := parseFloat(field(f, 17)); ok {
		p.VDOP = float32(v)
		p.Validity |= reading.PosVDOP
	}
	return out
}

// GST: pseudorange error statistics
//
//	1: time
//	2..5: range RMS, error ellipse (ignored)
//	6: latitude standard deviation (m)
//	7: longitude standard deviation (m)
//	8: altitude standard deviation (m)
func decodeGST(f []string) GST {
	var out GST
	p := &out.Position
	setClock(&out.Time, field(f, 1))
	if latStd, ok := parseFloat(field(f, 6)); ok {
		if lonStd, ok := parseFloat(field(f, 7)); ok {
			p.SigmaHPosition = float32(math.Sqrt(latStd*latStd + lonStd*lonStd))
			p.Validity |= reading.PosSigmaHPosition
		}
	}
	if v, ok := parseFloat(field(f, 8)); ok {
		p.SigmaAltitude = float32(v)
		p.Validity |= reading.PosSigmaAltitude
	}
	return out
}

// GSV: satellites in view, up to four per sentence.
//
//	1: total messages
//	2: message number
//	3: satellites in view
//	4+4n..7+4n: PRN, elevation, azimuth, SNR
func decodeGSV(payload string, f []string, sys reading.System) (GSV, error) {
	raw := fmt.Sprintf("$%s*%02X", payload, Checksum(payload))
	s, err := gonmea.Parse(raw)
	if err != nil {
		return GSV{}, err
	}
	g, ok := s.(gonmea.GSV)
	if !ok {
		return GSV{}, fmt.Errorf("nmea: unexpected sentence %s", s.DataType())
	}
	out := GSV{
		System:        sys,
		MessageNumber: int(g.MessageNumber),
		TotalMessages: int(g.TotalMessages),
		InView:        int(g.NumberSVsInView),
	}
	for i, info := range g.Info {
		base := 4 + 4*i
		if field(f, base) == "" {
			continue
		}
		sat := reading.SatelliteDetail{
			System:      sys,
			SatelliteID: uint16(info.SVPRNNumber),
			Validity:    reading.SatSystem | reading.SatID,
		}
		if field(f, base+1) != "" {
			sat.Elevation = uint16(info.Elevation)
			sat.Validity |= reading.SatElevation
		}
		if field(f, base+2) != "" {
			sat.Azimuth = uint16(info.Azimuth)
			sat.Validity |= reading.SatAzimuth
		}
		if field(f, base+3) != "" {
			sat.SNR = uint16(info.SNR)
			sat.Validity |= reading.SatSNR
		}
		out.Satellites = append(out.Satellites, sat)
	}
	return out, nil
}

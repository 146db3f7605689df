package nmea

import (
	"strconv"
	"strings"
)

func field(f []string, i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return strings.TrimSpace(f[i])
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseDigits(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	return parseInt(s)
}

// parseClock parses hhmmss[.sss].
func parseClock(s string) (h, m, sec, ms int, ok bool) {
	if len(s) < 6 {
		return 0, 0, 0, 0, false
	}
	if h, ok = parseDigits(s[0:2]); !ok || h > 23 {
		return 0, 0, 0, 0, false
	}
	if m, ok = parseDigits(s[2:4]); !ok || m > 59 {
		return 0, 0, 0, 0, false
	}
	// 60 is a leap second.
	if sec, ok = parseDigits(s[4:6]); !ok || sec > 60 {
		return 0, 0, 0, 0, false
	}
	if len(s) > 6 {
		if s[6] != '.' {
			return 0, 0, 0, 0, false
		}
		frac, fok := parseFloat("0" + s[6:])
		if !fok {
			return 0, 0, 0, 0, false
		}
		ms = int(frac*1000 + 0.5)
		if ms > 999 {
			ms = 999
		}
	}
	return h, m, sec, ms, true
}

// parseDate parses ddmmyy. Years are taken as 20yy.
func parseDate(s string) (year, month, day int, ok bool) {
	if len(s) < 6 {
		return 0, 0, 0, false
	}
	if day, ok = parseDigits(s[0:2]); !ok || day < 1 || day > 31 {
		return 0, 0, 0, false
	}
	if month, ok = parseDigits(s[2:4]); !ok || month < 1 || month > 12 {
		return 0, 0, 0, false
	}
	yy, ok := parseDigits(s[4:6])
	if !ok {
		return 0, 0, 0, false
	}
	return 2000 + yy, month, day, true
}

// parseCoord parses ddmm.mmmm (degDigits=2) or dddmm.mmmm (degDigits=3).
// The hemisphere negates the value for S and W when present.
func parseCoord(v string, hemi string, degDigits int) (float64, bool) {
	if len(v) < degDigits {
		return 0, false
	}
	deg, ok := parseDigits(v[:degDigits])
	if !ok {
		return 0, false
	}
	dec := float64(deg)
	if len(v) > degDigits {
		mins, ok := parseFloat(v[degDigits:])
		if !ok || mins < 0 {
			return 0, false
		}
		dec += mins / 60.0
	}
	switch strings.ToUpper(hemi) {
	case "S", "W":
		dec = -dec
	}
	return dec, true
}

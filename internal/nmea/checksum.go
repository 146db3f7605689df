package nmea

import (
	"encoding/hex"
	"strings"
)

// Checksum is the XOR of every byte of payload. payload excludes the
// leading '$' and the '*' suffix.
func Checksum(payload string) byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// frame is a sentence split into its parts.
type frame struct {
	payload string
	hasSum  bool
	want    byte
	got     byte
	sumOK   bool
}

// splitFrame separates the payload from an optional "*HH" trailer.
// A trailer shorter than two characters counts as no checksum.
func splitFrame(line string) (frame, bool) {
	if !strings.HasPrefix(line, "$") {
		return frame{}, false
	}
	body := line[1:]
	star := strings.IndexByte(body, '*')
	if star == -1 {
		return frame{payload: body, sumOK: true}, true
	}
	ck := body[star+1:]
	if len(ck) < 2 {
		return frame{payload: body[:star], sumOK: true}, true
	}
	fr := frame{payload: body[:star], hasSum: true}
	fr.got = Checksum(fr.payload)
	want, err := hex.DecodeString(ck[:2])
	if err != nil {
		return fr, true
	}
	fr.want = want[0]
	fr.sumOK = fr.want == fr.got
	return fr, true
}

// VerifyChecksum reports whether line carries a matching checksum or none
// at all.
func VerifyChecksum(line string) bool {
	fr, ok := splitFrame(strings.TrimSpace(line))
	return ok && fr.sumOK
}

package replay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for a datagram whose framing or fields cannot
	// be parsed.
	ErrMalformed = errors.New("replay: malformed datagram")
	// ErrUnknownMessage is returned for a message id no decoder handles.
	ErrUnknownMessage = errors.New("replay: unknown message")
)

// Frame is one replay datagram:
//
//	<sendTimestamp>,<countdown>$<MSGID>,<field1>,<field2>,...
//
// countdown runs from N-1 down to 0 across a burst of N datagrams.
type Frame struct {
	SendTimestamp uint64
	Countdown     int
	ID            string
	Fields        []string
}

// trimDatagram drops the NUL terminator the sender includes and any line
// ending carried over from the log file.
func trimDatagram(b []byte) string {
	return strings.TrimRight(string(b), "\x00\r\n \t")
}

func ParseFrame(datagram []byte) (Frame, error) {
	s := trimDatagram(datagram)
	dollar := strings.IndexByte(s, '$')
	if dollar < 0 {
		return Frame{}, fmt.Errorf("%w: missing '$'", ErrMalformed)
	}
	head := strings.Split(s[:dollar], ",")
	if len(head) != 2 {
		return Frame{}, fmt.Errorf("%w: header %q", ErrMalformed, s[:dollar])
	}
	ts, err := strconv.ParseUint(strings.TrimSpace(head[0]), 10, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: send timestamp: %v", ErrMalformed, err)
	}
	cd, err := strconv.Atoi(strings.TrimSpace(head[1]))
	if err != nil || cd < 0 {
		return Frame{}, fmt.Errorf("%w: countdown %q", ErrMalformed, head[1])
	}
	body := strings.Split(s[dollar+1:], ",")
	if body[0] == "" {
		return Frame{}, fmt.Errorf("%w: empty message id", ErrMalformed)
	}
	return Frame{
		SendTimestamp: ts,
		Countdown:     cd,
		ID:            body[0],
		Fields:        body[1:],
	}, nil
}

// MessageID returns the id between '$' and the first ',' of a datagram or
// log line, or "" when there is none.
func MessageID(line string) string {
	dollar := strings.IndexByte(line, '$')
	if dollar < 0 {
		return ""
	}
	rest := line[dollar+1:]
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	return strings.TrimRight(rest, "\x00\r\n \t")
}

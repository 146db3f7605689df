package main

import (
	"fmt"
	"net"
	"strconv"

	"go.uber.org/multierr"

	"positioning-ng/internal/replay"
	"positioning-ng/internal/udp"
)

type sender interface {
	Send([]byte) error
	Close() error
}

// router sends each line to the port of its message family.
type router struct {
	senders map[replay.Family]sender

	sent    int
	skipped int
}

func newRouter(host string) (*router, error) {
	rt := &router{senders: make(map[replay.Family]sender)}
	for _, f := range []replay.Family{replay.FamilyGNSS, replay.FamilySensors, replay.FamilyVehicle} {
		s, err := udp.NewSender(net.JoinHostPort(host, strconv.Itoa(f.Port())))
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("%s sender: %w", f, err)
		}
		rt.senders[f] = s
	}
	return rt, nil
}

// Send writes the line plus its terminating NUL. Lines of unknown families
// are counted and dropped.
func (rt *router) Send(line string) error {
	s, ok := rt.senders[replay.FamilyOf(replay.MessageID(line))]
	if !ok {
		rt.skipped++
		return nil
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, 0)
	if err := s.Send(buf); err != nil {
		return err
	}
	rt.sent++
	return nil
}

func (rt *router) Close() error {
	var err error
	for _, s := range rt.senders {
		err = multierr.Append(err, s.Close())
	}
	return err
}

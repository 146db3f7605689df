package replay

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
)

// ErrWrongFamily is returned when a known message arrives on the port of
// another family.
var ErrWrongFamily = errors.New("replay: message not handled by this dispatcher")

type Option func(*dispatcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *dispatcher) { d.metrics = m }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithCapacity overrides MaxBufferedMessages.
func WithCapacity(n int) Option {
	return func(d *dispatcher) { d.capacity = n }
}

// dispatcher holds what both families share: error accounting and logging.
type dispatcher struct {
	name     string
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
	limiter  *rate.Limiter
	capacity int
}

func newDispatcher(name string, opts []Option) dispatcher {
	d := dispatcher{
		name:     name,
		log:      zap.NewNop().Sugar(),
		limiter:  rate.NewLimiter(rate.Limit(1), 5),
		capacity: MaxBufferedMessages,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d *dispatcher) decode(datagram []byte) (Frame, Message, error) {
	f, err := ParseFrame(datagram)
	if err != nil {
		d.dropped("malformed", datagram, err)
		return Frame{}, nil, err
	}
	m, err := DecodeMessage(f)
	if err != nil {
		kind := "malformed"
		if errors.Is(err, ErrUnknownMessage) {
			kind = "unknown"
		}
		d.dropped(kind, datagram, err)
		return f, nil, err
	}
	return f, m, nil
}

func (d *dispatcher) dropped(kind string, datagram []byte, err error) {
	d.metrics.ProtocolError(d.name, kind)
	if d.limiter.Allow() {
		d.log.Debugw("replay datagram dropped", "kind", kind, "datagram", trimDatagram(datagram), "error", err)
	}
}

func (d *dispatcher) account(id string, r AddResult) {
	if r == Discarded {
		d.metrics.ReassemblyReset(id)
	}
}

// GNSSDispatcher feeds GNSS family datagrams into a GNSS hub. Position,
// course and accuracy messages are reassembled separately and each becomes
// its own Position reading.
type GNSSDispatcher struct {
	dispatcher
	position   *Batcher[reading.Position]
	course     *Batcher[reading.Position]
	accuracy   *Batcher[reading.Position]
	satellites *Batcher[reading.SatelliteDetail]
}

func NewGNSSDispatcher(hub *store.GNSS, opts ...Option) *GNSSDispatcher {
	d := &GNSSDispatcher{dispatcher: newDispatcher("replay_gnss", opts)}
	pos := func(b []reading.Position) { hub.Position.Update(b) }
	d.position = NewBatcher(d.capacity, pos)
	d.course = NewBatcher(d.capacity, pos)
	d.accuracy = NewBatcher(d.capacity, pos)
	d.satellites = NewBatcher(d.capacity, func(b []reading.SatelliteDetail) { hub.Satellites.Update(b) })
	return d
}

// Feed decodes one datagram. Errors are informational: the datagram has
// been dropped and the reassembly state of other messages is unchanged.
func (d *GNSSDispatcher) Feed(datagram []byte) error {
	f, m, err := d.decode(datagram)
	if err != nil {
		return err
	}
	var r AddResult
	switch m := m.(type) {
	case PositionMessage:
		r = d.position.Add(f.Countdown, m.Position)
	case CourseMessage:
		r = d.course.Add(f.Countdown, m.Position)
	case AccuracyMessage:
		r = d.accuracy.Add(f.Countdown, m.Position)
	case SatelliteMessage:
		r = d.satellites.Add(f.Countdown, m.Satellite)
	default:
		err := fmt.Errorf("%w: %s", ErrWrongFamily, m.ID())
		d.dropped("family", datagram, err)
		return err
	}
	d.account(f.ID, r)
	return nil
}

// SensorsDispatcher feeds sensor family datagrams into a Sensors hub.
type SensorsDispatcher struct {
	dispatcher
	gyroscope    *Batcher[reading.Gyroscope]
	acceleration *Batcher[reading.Acceleration]
	wheelTicks   *Batcher[reading.WheelTicks]
	vehicleSpeed *Batcher[reading.VehicleSpeed]
}

func NewSensorsDispatcher(hub *store.Sensors, opts ...Option) *SensorsDispatcher {
	d := &SensorsDispatcher{dispatcher: newDispatcher("replay_sensors", opts)}
	d.gyroscope = NewBatcher(d.capacity, func(b []reading.Gyroscope) { hub.Gyroscope.Update(b) })
	d.acceleration = NewBatcher(d.capacity, func(b []reading.Acceleration) { hub.Acceleration.Update(b) })
	d.wheelTicks = NewBatcher(d.capacity, func(b []reading.WheelTicks) { hub.WheelTicks.Update(b) })
	d.vehicleSpeed = NewBatcher(d.capacity, func(b []reading.VehicleSpeed) { hub.VehicleSpeed.Update(b) })
	return d
}

func (d *SensorsDispatcher) Feed(datagram []byte) error {
	f, m, err := d.decode(datagram)
	if err != nil {
		return err
	}
	var r AddResult
	switch m := m.(type) {
	case GyroMessage:
		r = d.gyroscope.Add(f.Countdown, m.Gyroscope)
	case AccelerationMessage:
		r = d.acceleration.Add(f.Countdown, m.Acceleration)
	case WheelTickMessage:
		r = d.wheelTicks.Add(f.Countdown, m.WheelTicks)
	case VehicleSpeedMessage:
		r = d.vehicleSpeed.Add(f.Countdown, m.VehicleSpeed)
	default:
		err := fmt.Errorf("%w: %s", ErrWrongFamily, m.ID())
		d.dropped("family", datagram, err)
		return err
	}
	d.account(f.ID, r)
	return nil
}

package reading

type AccelerationValidity uint32

const (
	AccelX    AccelerationValidity = 0x1
	AccelY    AccelerationValidity = 0x2
	AccelZ    AccelerationValidity = 0x4
	AccelTemp AccelerationValidity = 0x8
)

// Acceleration is in g, temperature in degrees Celsius.
type Acceleration struct {
	Timestamp   uint64
	X, Y, Z     float32
	Temperature float32
	Validity    AccelerationValidity
}

func (a Acceleration) Stamp() uint64 { return a.Timestamp }

type GyroscopeValidity uint32

const (
	GyroYaw   GyroscopeValidity = 0x1
	GyroPitch GyroscopeValidity = 0x2
	GyroRoll  GyroscopeValidity = 0x4
	GyroTemp  GyroscopeValidity = 0x8
)

// Gyroscope rates are in degrees per second.
type Gyroscope struct {
	Timestamp   uint64
	YawRate     float32
	PitchRate   float32
	RollRate    float32
	Temperature float32
	Validity    GyroscopeValidity
}

func (g Gyroscope) Stamp() uint64 { return g.Timestamp }

type WheelID uint8

const (
	WheelInvalid       WheelID = 0
	WheelUnknown       WheelID = 1
	WheelAxleNonDriven WheelID = 2
	WheelAxleFront     WheelID = 3
	WheelAxleRear      WheelID = 4
	WheelLeftFront     WheelID = 5
	WheelRightFront    WheelID = 6
	WheelLeftRear      WheelID = 7
	WheelRightRear     WheelID = 8
)

// MaxWheelTicks is the fixed number of wheel slots in one reading.
const MaxWheelTicks = 4

type WheelTickValidity uint32

const (
	Wheel1 WheelTickValidity = 0x1
	Wheel2 WheelTickValidity = 0x2
	Wheel3 WheelTickValidity = 0x4
	Wheel4 WheelTickValidity = 0x8
)

type WheelTick struct {
	ID      WheelID
	Counter uint32
}

type WheelTicks struct {
	Timestamp uint64
	Elements  [MaxWheelTicks]WheelTick
	Count     uint8
	Validity  WheelTickValidity
}

func (w WheelTicks) Stamp() uint64 { return w.Timestamp }

// Set stores tick i and marks it valid when its id is not WheelInvalid.
// Indices outside the fixed capacity are ignored.
func (w *WheelTicks) Set(i int, id WheelID, counter uint32) bool {
	if i < 0 || i >= MaxWheelTicks {
		return false
	}
	w.Elements[i] = WheelTick{ID: id, Counter: counter}
	if int(w.Count) < i+1 {
		w.Count = uint8(i + 1)
	}
	if id != WheelInvalid {
		w.Validity |= WheelTickValidity(1) << uint(i)
	}
	return true
}

type VehicleSpeedValidity uint32

const VehicleSpeedValid VehicleSpeedValidity = 0x1

// VehicleSpeed is in m/s.
type VehicleSpeed struct {
	Timestamp uint64
	Speed     float32
	Validity  VehicleSpeedValidity
}

func (v VehicleSpeed) Stamp() uint64 { return v.Timestamp }

type SensorStatusValidity uint32

const SensorStatusStatus SensorStatusValidity = 0x1

type SensorStatus struct {
	Timestamp uint64
	Status    Status
	Validity  SensorStatusValidity
}

func (s SensorStatus) Stamp() uint64 { return s.Timestamp }

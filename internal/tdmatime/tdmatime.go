// Package tdmatime implements TETRA's (timeslot, frame, multiframe,
// hyperframe) clock: the four nested counters every entity above the
// physical layer uses to address a burst in time.
package tdmatime

import "fmt"

const (
	// TimeslotsPerFrame is the number of TDMA timeslots in a frame (1..4).
	TimeslotsPerFrame = 4
	// FramesPerMultiframe is the number of frames in a multiframe (1..18).
	// Frame 18 is the control frame: it never carries a traffic channel.
	FramesPerMultiframe = 18
	// MultiframesPerHyperframe is the number of multiframes in a
	// hyperframe (1..60).
	MultiframesPerHyperframe = 60
	// HyperframeModulus is the wraparound point for the hyperframe number.
	HyperframeModulus = 65536

	// ControlFrame is the frame number reserved exclusively for
	// signalling; no traffic channel is ever mapped to it.
	ControlFrame = 18

	// uplinkLagSlots is how many timeslot periods a mobile's uplink burst
	// trails the downlink burst addressing the same logical exchange.
	uplinkLagSlots = 2
)

// Time identifies one TDMA timeslot instant: timeslot T (1..4), frame F
// (1..18), multiframe M (1..60), hyperframe H (0..HyperframeModulus-1).
type Time struct {
	T int
	F int
	M int
	H int
}

// New validates and constructs a Time. Out-of-range counters are a caller
// bug (decoded from a PDU field that should already have been range
// checked), so this panics rather than returning an error.
func New(t, f, m, h int) Time {
	tm := Time{T: t, F: f, M: m, H: h}
	if err := tm.validate(); err != nil {
		panic(err)
	}
	return tm
}

func (tm Time) validate() error {
	if tm.T < 1 || tm.T > TimeslotsPerFrame {
		return fmt.Errorf("tdmatime: timeslot %d out of range [1,%d]", tm.T, TimeslotsPerFrame)
	}
	if tm.F < 1 || tm.F > FramesPerMultiframe {
		return fmt.Errorf("tdmatime: frame %d out of range [1,%d]", tm.F, FramesPerMultiframe)
	}
	if tm.M < 1 || tm.M > MultiframesPerHyperframe {
		return fmt.Errorf("tdmatime: multiframe %d out of range [1,%d]", tm.M, MultiframesPerHyperframe)
	}
	if tm.H < 0 || tm.H >= HyperframeModulus {
		return fmt.Errorf("tdmatime: hyperframe %d out of range [0,%d)", tm.H, HyperframeModulus)
	}
	return nil
}

func (tm Time) String() string {
	return fmt.Sprintf("(t=%d,f=%d,m=%d,h=%d)", tm.T, tm.F, tm.M, tm.H)
}

// IsControlFrame reports whether tm falls on the mandatory control frame
// (frame 18), which can never carry a traffic channel allocation.
func (tm Time) IsControlFrame() bool { return tm.F == ControlFrame }

// AddSlots returns the Time n timeslot periods after tm, carrying through
// frame, multiframe, and hyperframe as each counter rolls over. n may be
// negative to step backwards.
func (tm Time) AddSlots(n int) Time {
	total := tm.linear() + n
	return fromLinear(total)
}

// linear flattens tm into a single monotonically increasing slot count,
// hyperframe-relative, with all counters normalized to zero-based.
func (tm Time) linear() int {
	t0 := tm.T - 1
	f0 := tm.F - 1
	m0 := tm.M - 1
	slotsPerMultiframe := FramesPerMultiframe * TimeslotsPerFrame
	slotsPerHyperframe := MultiframesPerHyperframe * slotsPerMultiframe
	return tm.H*slotsPerHyperframe + m0*slotsPerMultiframe + f0*TimeslotsPerFrame + t0
}

func fromLinear(total int) Time {
	slotsPerMultiframe := FramesPerMultiframe * TimeslotsPerFrame
	slotsPerHyperframe := MultiframesPerHyperframe * slotsPerMultiframe

	total %= HyperframeModulus * slotsPerHyperframe
	if total < 0 {
		total += HyperframeModulus * slotsPerHyperframe
	}

	h := total / slotsPerHyperframe
	rem := total % slotsPerHyperframe
	m := rem / slotsPerMultiframe
	rem %= slotsPerMultiframe
	f := rem / TimeslotsPerFrame
	t := rem % TimeslotsPerFrame

	return Time{T: t + 1, F: f + 1, M: m + 1, H: h}
}

// UplinkCounterpart returns the uplink time that corresponds to tm when tm
// is a downlink time: the base station's downlink addressing of a slot
// leads the mobile's matching uplink transmission by two timeslot periods.
func (tm Time) UplinkCounterpart() Time {
	return tm.AddSlots(uplinkLagSlots)
}

// DownlinkCounterpart is the inverse of UplinkCounterpart.
func (tm Time) DownlinkCounterpart() Time {
	return tm.AddSlots(-uplinkLagSlots)
}

// Before reports whether tm occurs strictly earlier than other on the
// hyperframe-relative linear timeline (wraparound-naive: only meaningful
// for times within the same hyperframe epoch).
func (tm Time) Before(other Time) bool {
	return tm.linear() < other.linear()
}

// Equal reports whether tm and other identify the same timeslot instant.
func (tm Time) Equal(other Time) bool {
	return tm.T == other.T && tm.F == other.F && tm.M == other.M && tm.H == other.H
}

// DistanceSlots returns the number of timeslot periods between tm and
// earlier, assuming earlier precedes tm within the same hyperframe epoch
// (wraparound-naive, like Before).
func (tm Time) DistanceSlots(earlier Time) int {
	return tm.linear() - earlier.linear()
}

package frame

import (
	"time"
)

// Angle identifies the camera viewpoint a frame was captured from.
// The public stream cycles through a handful of fixed presets; anything
// we cannot place confidently is classified as useless.
type Angle string

const (
	// AngleBridge - view down the bridge lanes, used for vehicle counting
	AngleBridge Angle = "bridge"
	// AngleProcessing - view of the processing area under the canopy
	AngleProcessing Angle = "processing"
	// AngleWide - wide shot covering the approach and the fuel station
	AngleWide Angle = "wide"
	// AngleUseless - unrecognized or transitional view, never analyzed
	AngleUseless Angle = "useless"
)

// UsefulAngles lists the analyzable angles in selection priority order.
var UsefulAngles = []Angle{AngleBridge, AngleProcessing, AngleWide}

// Useful reports whether frames of this angle are worth keeping around.
func (a Angle) Useful() bool {
	return a == AngleBridge || a == AngleProcessing || a == AngleWide
}

// Frame is a single captured still. Immutable once created.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
	Angle      Angle
}

// Age returns how old the frame is relative to now.
func (f *Frame) Age(now time.Time) time.Duration {
	return now.Sub(f.CapturedAt)
}

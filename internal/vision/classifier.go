package vision

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"bridgewatch/internal/frame"
	"bridgewatch/internal/imageutil"
)

// Landmark descriptions for each preset the public stream cycles
// through. The model answers with exactly one category word.
const classifyInstruction = `You are looking at one still frame from a fixed traffic camera at the Maseru Bridge border crossing. The camera cycles between a few preset views. Classify which view this frame shows and answer with exactly one word.

BRIDGE - looking along the bridge deck itself: lane markings running away from the camera, the large bridge pillar on the right, queued vehicles facing toward or away from the camera.
PROCESSING - the vehicle processing area: a flat canopy roof over inspection lanes, booths, officials walking between stopped cars.
WIDE - a wide shot of the whole approach: the fuel-station signage on the left, the road curving toward the bridge in the distance, open sky.

If the frame is blurry, mid-pan, pointed somewhere else, or you are not certain, answer USELESS.

Answer with one word only: BRIDGE, PROCESSING, WIDE or USELESS.`

// Classifier assigns captured frames to a camera angle with a
// single-shot model call. At most one classification runs at a time; a
// request arriving while one is in flight gets USELESS immediately
// rather than queueing behind an external call of unknown duration.
type Classifier struct {
	model       Generator
	maxImageDim int
	busy        atomic.Bool
	logger      *log.Logger
}

// NewClassifier creates an angle classifier backed by the given model.
func NewClassifier(model Generator, maxImageDim int, logger *log.Logger) *Classifier {
	return &Classifier{
		model:       model,
		maxImageDim: maxImageDim,
		logger:      logger,
	}
}

// Classify returns the angle for a frame. Every failure mode - busy,
// model error, ambiguous reply - maps to USELESS so an uncertain frame
// is discarded from useful consideration rather than guessed.
func (c *Classifier) Classify(ctx context.Context, data []byte) frame.Angle {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Printf("[Classifier] Classification already in flight, marking frame useless")
		return frame.AngleUseless
	}
	defer c.busy.Store(false)

	image := data
	if scaled, err := imageutil.Downscale(data, c.maxImageDim); err == nil {
		image = scaled
	} else {
		c.logger.Printf("[Classifier] Downscale failed, sending original frame: %v", err)
	}

	start := time.Now()
	reply, err := c.model.Generate(ctx, "", [][]byte{image}, classifyInstruction)
	if err != nil {
		c.logger.Printf("[Classifier] Model call failed: %v", err)
		return frame.AngleUseless
	}

	angle := parseAngle(reply)
	c.logger.Printf("[Classifier] Frame classified as %s in %v", angle, time.Since(start).Round(time.Millisecond))
	return angle
}

// parseAngle maps a model reply to an angle. The reply must contain
// exactly one of the useful category names; anything else fails closed
// to USELESS.
func parseAngle(reply string) frame.Angle {
	upper := strings.ToUpper(reply)

	var matched frame.Angle
	matches := 0
	for name, angle := range map[string]frame.Angle{
		"BRIDGE":     frame.AngleBridge,
		"PROCESSING": frame.AngleProcessing,
		"WIDE":       frame.AngleWide,
	} {
		if strings.Contains(upper, name) {
			matched = angle
			matches++
		}
	}
	if matches != 1 {
		return frame.AngleUseless
	}
	return matched
}

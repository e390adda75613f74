package frame

// MaxSelected caps how many frames are attached to one analysis request.
const MaxSelected = 3

// Selected is a frame chosen for analysis. Fallback marks frames that
// came from a preserved slot rather than the live buffer.
type Selected struct {
	Frame    *Frame
	Fallback bool
}

// Selector picks the best available frames for one analysis request,
// preferring angular diversity and falling back to buffered depth from a
// single angle when diversity is not available.
type Selector struct {
	store *Store
}

// NewSelector creates a selector backed by the given store.
func NewSelector(store *Store) *Selector {
	return &Selector{store: store}
}

// Select returns up to MaxSelected frames. Per angle, in priority order
// bridge, processing, wide: the newest buffered frame wins; otherwise a
// fresh preserved frame is used, tagged as a fallback; otherwise the
// angle is omitted. If fewer than MaxSelected frames were found, the
// angle with the most buffered frames backfills with its remaining
// frames, oldest first.
//
// An empty result means nothing usable exists anywhere and analysis must
// report the camera as unavailable.
func (s *Selector) Select() []Selected {
	buffer, preserved := s.store.snapshot()

	byAngle := make(map[Angle][]*Frame)
	for _, f := range buffer {
		if f.Angle.Useful() {
			byAngle[f.Angle] = append(byAngle[f.Angle], f)
		}
	}

	selected := make([]Selected, 0, MaxSelected)
	for _, angle := range UsefulAngles {
		if frames := byAngle[angle]; len(frames) > 0 {
			selected = append(selected, Selected{Frame: frames[len(frames)-1]})
			continue
		}
		if p := preserved[angle]; p != nil && s.store.IsFresh(p) {
			selected = append(selected, Selected{Frame: p, Fallback: true})
		}
	}

	if len(selected) >= MaxSelected {
		return selected[:MaxSelected]
	}

	// Backfill from the deepest angle in the buffer. The newest frame of
	// that angle is already selected, so the remainder is added oldest
	// first until the cap is hit or the angle runs out.
	var deepest Angle
	depth := 0
	for _, angle := range UsefulAngles {
		if len(byAngle[angle]) > depth {
			deepest = angle
			depth = len(byAngle[angle])
		}
	}
	if depth > 1 {
		remainder := byAngle[deepest][:depth-1]
		for _, f := range remainder {
			if len(selected) >= MaxSelected {
				break
			}
			selected = append(selected, Selected{Frame: f})
		}
	}

	return selected
}

// NewestTimestamp returns the capture time of the newest frame in the
// selection, and whether the selection was non-empty.
func NewestTimestamp(selected []Selected) (newest *Frame, ok bool) {
	for _, sel := range selected {
		if newest == nil || sel.Frame.CapturedAt.After(newest.CapturedAt) {
			newest = sel.Frame
		}
	}
	return newest, newest != nil
}

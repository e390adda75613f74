package frame

import (
	"fmt"
	"testing"
	"time"
)

func testFrame(angle Angle, capturedAt time.Time) *Frame {
	return &Frame{
		Data:       []byte(fmt.Sprintf("%s-%d", angle, capturedAt.UnixNano())),
		CapturedAt: capturedAt,
		Angle:      angle,
	}
}

func TestBufferBound(t *testing.T) {
	store := NewStore(4, time.Minute)
	base := time.Now()

	var recorded []*Frame
	for i := 0; i < 10; i++ {
		f := testFrame(AngleBridge, base.Add(time.Duration(i)*time.Second))
		recorded = append(recorded, f)
		store.Record(f)

		if store.Depth() > 4 {
			t.Fatalf("buffer depth %d exceeds capacity 4", store.Depth())
		}
	}

	// Buffer must hold exactly the 4 most recent frames in capture order.
	useful := store.UsefulFrames()
	if len(useful) != 4 {
		t.Fatalf("expected 4 buffered frames, got %d", len(useful))
	}
	for i, f := range useful {
		want := recorded[len(recorded)-4+i]
		if f != want {
			t.Errorf("frame %d: got capture %v, want %v", i, f.CapturedAt, want.CapturedAt)
		}
	}
}

func TestEvictionReleasesFrames(t *testing.T) {
	store := NewStore(4, time.Minute)
	base := time.Now()

	for i := 0; i < 10; i++ {
		store.Record(testFrame(AngleBridge, base.Add(time.Duration(i)*time.Second)))
	}

	// Eviction must not grow the backing array: a grown array would keep
	// evicted frames (and their image bytes) reachable behind len.
	if cap(store.buffer) != 4 {
		t.Errorf("buffer backing array grew to %d, want capacity 4", cap(store.buffer))
	}
	if got := store.buffer[0].CapturedAt; !got.Equal(base.Add(6 * time.Second)) {
		t.Errorf("oldest retained frame captured at %v, want %v", got, base.Add(6*time.Second))
	}
}

func TestPreservedMonotonicity(t *testing.T) {
	store := NewStore(2, time.Minute)
	base := time.Now()

	bridge := testFrame(AngleBridge, base)
	store.Record(bridge)

	// Evict the bridge frame from the buffer with other angles.
	store.Record(testFrame(AngleWide, base.Add(1*time.Second)))
	store.Record(testFrame(AngleProcessing, base.Add(2*time.Second)))

	if got := store.Preserved(AngleBridge); got != bridge {
		t.Fatalf("preserved bridge slot lost after eviction: %v", got)
	}

	newer := testFrame(AngleBridge, base.Add(3*time.Second))
	store.Record(newer)
	if got := store.Preserved(AngleBridge); got != newer {
		t.Fatalf("preserved bridge slot not overwritten by newer frame")
	}
}

func TestUselessNeverPreserved(t *testing.T) {
	store := NewStore(4, time.Minute)
	store.Record(testFrame(AngleUseless, time.Now()))

	for _, angle := range UsefulAngles {
		if store.Preserved(angle) != nil {
			t.Errorf("useless frame leaked into %s preserved slot", angle)
		}
	}
	if len(store.UsefulFrames()) != 0 {
		t.Error("useless frame reported as useful")
	}
	if store.Latest() == nil {
		t.Error("useless frame should still be served by Latest")
	}
}

func TestFreshnessBoundary(t *testing.T) {
	store := NewStore(4, 10*time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	atThreshold := testFrame(AngleBridge, now.Add(-10*time.Minute))
	if !store.IsFresh(atThreshold) {
		t.Error("frame aged exactly at the threshold must be fresh")
	}

	justOver := testFrame(AngleBridge, now.Add(-10*time.Minute-time.Microsecond))
	if store.IsFresh(justOver) {
		t.Error("frame one microsecond past the threshold must be stale")
	}

	if store.IsFresh(nil) {
		t.Error("nil frame cannot be fresh")
	}
}

func TestLatestEmpty(t *testing.T) {
	store := NewStore(4, time.Minute)
	if store.Latest() != nil {
		t.Error("empty store must return nil latest frame")
	}
}

func TestPreservedAges(t *testing.T) {
	store := NewStore(4, time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Record(testFrame(AngleWide, now.Add(-90*time.Second)))

	ages := store.PreservedAges()
	if len(ages) != 1 {
		t.Fatalf("expected 1 preserved slot, got %d", len(ages))
	}
	if ages[AngleWide] != 90*time.Second {
		t.Errorf("expected age 90s, got %v", ages[AngleWide])
	}
}

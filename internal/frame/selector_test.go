package frame

import (
	"testing"
	"time"
)

func TestSelectorPriorityAcrossSources(t *testing.T) {
	store := NewStore(12, 10*time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	// Buffer holds only a wide frame; a fresh bridge frame sits in the
	// preserved slot (recorded, then evicted).
	bridge := testFrame(AngleBridge, now.Add(-5*time.Minute))
	store.Record(bridge)
	store.buffer = store.buffer[:0] // simulate eviction, preserved slot survives

	wide := testFrame(AngleWide, now.Add(-30*time.Second))
	store.Record(wide)

	selected := NewSelector(store).Select()
	if len(selected) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(selected))
	}
	if selected[0].Frame != bridge || !selected[0].Fallback {
		t.Errorf("bridge must come first, from the preserved slot")
	}
	if selected[1].Frame != wide || selected[1].Fallback {
		t.Errorf("wide must come second, from the buffer")
	}
}

func TestSelectorExhaustion(t *testing.T) {
	store := NewStore(12, 10*time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	// Preserved slots populated but stale, buffer empty.
	store.Record(testFrame(AngleBridge, now.Add(-20*time.Minute)))
	store.Record(testFrame(AngleWide, now.Add(-15*time.Minute)))
	store.buffer = store.buffer[:0]

	if selected := NewSelector(store).Select(); len(selected) != 0 {
		t.Fatalf("expected empty selection, got %d frames", len(selected))
	}
}

func TestSelectorStalePreservedOmitted(t *testing.T) {
	store := NewStore(12, 10*time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	bridge := testFrame(AngleBridge, now.Add(-10*time.Second))
	processing := testFrame(AngleProcessing, now.Add(-40*time.Second))

	// Stale preserved wide frame, no live wide frame anywhere.
	store.Record(testFrame(AngleWide, now.Add(-15*time.Minute)))
	store.buffer = store.buffer[:0]

	store.Record(processing)
	store.Record(bridge)

	selected := NewSelector(store).Select()
	if len(selected) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(selected))
	}
	if selected[0].Frame != bridge {
		t.Error("bridge frame must be selected first")
	}
	if selected[1].Frame != processing {
		t.Error("processing frame must be selected second")
	}
	for _, sel := range selected {
		if sel.Frame.Angle == AngleWide {
			t.Error("stale preserved wide frame must be omitted")
		}
	}
}

func TestSelectorBackfillFromDeepestAngle(t *testing.T) {
	store := NewStore(12, 10*time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	old := testFrame(AngleBridge, now.Add(-3*time.Minute))
	mid := testFrame(AngleBridge, now.Add(-2*time.Minute))
	newest := testFrame(AngleBridge, now.Add(-1*time.Minute))
	store.Record(old)
	store.Record(mid)
	store.Record(newest)

	selected := NewSelector(store).Select()
	if len(selected) != 3 {
		t.Fatalf("expected 3 frames via backfill, got %d", len(selected))
	}
	if selected[0].Frame != newest {
		t.Error("newest bridge frame must be selected first")
	}
	// Backfill adds the remainder oldest first.
	if selected[1].Frame != old || selected[2].Frame != mid {
		t.Error("backfill order must be oldest first among the remainder")
	}
}

func TestSelectorCapsAtThree(t *testing.T) {
	store := NewStore(12, 10*time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Record(testFrame(AngleBridge, now.Add(-4*time.Minute)))
	store.Record(testFrame(AngleProcessing, now.Add(-3*time.Minute)))
	store.Record(testFrame(AngleWide, now.Add(-2*time.Minute)))
	store.Record(testFrame(AngleBridge, now.Add(-1*time.Minute)))

	selected := NewSelector(store).Select()
	if len(selected) != 3 {
		t.Fatalf("expected exactly 3 frames, got %d", len(selected))
	}
	angles := map[Angle]bool{}
	for _, sel := range selected {
		angles[sel.Frame.Angle] = true
	}
	for _, angle := range UsefulAngles {
		if !angles[angle] {
			t.Errorf("angle %s missing from a diverse selection", angle)
		}
	}
}

func TestNewestTimestamp(t *testing.T) {
	now := time.Now()
	older := testFrame(AngleBridge, now.Add(-2*time.Minute))
	newer := testFrame(AngleWide, now.Add(-1*time.Minute))

	newest, ok := NewestTimestamp([]Selected{{Frame: older}, {Frame: newer}})
	if !ok || newest != newer {
		t.Error("newest frame not identified")
	}

	if _, ok := NewestTimestamp(nil); ok {
		t.Error("empty selection must report no newest frame")
	}
}

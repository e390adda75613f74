package capture

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"bridgewatch/internal/frame"
)

type fakeGrabber struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
	block chan struct{}
}

func (g *fakeGrabber) Grab(ctx context.Context) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.data, g.err
}

func (g *fakeGrabber) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fixedClassifier struct {
	angle frame.Angle
}

func (c fixedClassifier) Classify(ctx context.Context, data []byte) frame.Angle {
	return c.angle
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", log.Ltime)
}

func newTestScheduler(g Grabber, angle frame.Angle, store *frame.Store) *Scheduler {
	return NewScheduler(g, fixedClassifier{angle}, store, nil, SchedulerConfig{
		Interval: time.Hour,
		Timeout:  time.Second,
	}, testLogger())
}

func TestCaptureRecordsFrame(t *testing.T) {
	store := frame.NewStore(4, time.Minute)
	grabber := &fakeGrabber{data: []byte("jpeg")}
	s := newTestScheduler(grabber, frame.AngleBridge, store)

	if !s.CaptureOnce(context.Background()) {
		t.Fatal("capture should not have been skipped")
	}
	if store.Depth() != 1 {
		t.Fatalf("expected 1 buffered frame, got %d", store.Depth())
	}
	if store.Preserved(frame.AngleBridge) == nil {
		t.Error("bridge frame should populate the preserved slot")
	}
}

func TestCaptureFailureKeepsBuffer(t *testing.T) {
	store := frame.NewStore(4, time.Minute)
	good := &fakeGrabber{data: []byte("jpeg")}
	s := newTestScheduler(good, frame.AngleWide, store)
	s.CaptureOnce(context.Background())

	s.grabber = &fakeGrabber{err: errors.New("stream down")}
	if !s.CaptureOnce(context.Background()) {
		t.Fatal("failed capture still counts as an attempt")
	}

	if store.Depth() != 1 {
		t.Fatalf("failed grab must leave buffer unchanged, depth %d", store.Depth())
	}
	_, _, lastErr := s.Status()
	if lastErr == nil {
		t.Error("capture failure should be recorded in status")
	}
}

func TestExclusiveCapture(t *testing.T) {
	store := frame.NewStore(4, time.Minute)
	block := make(chan struct{})
	grabber := &fakeGrabber{data: []byte("jpeg"), block: block}
	s := newTestScheduler(grabber, frame.AngleBridge, store)

	firstDone := make(chan bool, 1)
	go func() {
		firstDone <- s.CaptureOnce(context.Background())
	}()

	// Wait until the first capture is inside the blocked grab, then
	// trigger a second one. It must observe the in-progress flag and
	// collapse to a no-op without touching the grabber.
	for grabber.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	if s.CaptureOnce(context.Background()) {
		t.Error("concurrent capture trigger must be skipped")
	}

	close(block)
	if !<-firstDone {
		t.Error("first capture should have run")
	}
	if grabber.callCount() != 1 {
		t.Errorf("expected exactly one external grab, got %d", grabber.callCount())
	}
}

type deadlineClassifier struct {
	angle     frame.Angle
	remaining time.Duration
}

func (c *deadlineClassifier) Classify(ctx context.Context, data []byte) frame.Angle {
	if deadline, ok := ctx.Deadline(); ok {
		c.remaining = time.Until(deadline)
	}
	return c.angle
}

func TestClassificationGetsOwnBudget(t *testing.T) {
	store := frame.NewStore(4, time.Minute)
	timeout := 100 * time.Millisecond

	// The grab consumes most of the capture timeout; classification must
	// still start with a full budget of its own.
	block := make(chan struct{})
	grabber := &fakeGrabber{data: []byte("jpeg"), block: block}
	time.AfterFunc(70*time.Millisecond, func() { close(block) })

	classifier := &deadlineClassifier{angle: frame.AngleBridge}
	s := NewScheduler(grabber, classifier, store, nil, SchedulerConfig{
		Interval: time.Hour,
		Timeout:  timeout,
	}, testLogger())

	if !s.CaptureOnce(context.Background()) {
		t.Fatal("capture should not have been skipped")
	}
	if classifier.remaining <= timeout/2 {
		t.Errorf("classification started with only %v of budget left, want a fresh %v", classifier.remaining, timeout)
	}
	if store.Preserved(frame.AngleBridge) == nil {
		t.Error("slow-grab frame should still be classified and preserved")
	}
}

func TestCaptureTimeout(t *testing.T) {
	store := frame.NewStore(4, time.Minute)
	grabber := &fakeGrabber{data: []byte("jpeg"), block: make(chan struct{})}
	s := NewScheduler(grabber, fixedClassifier{frame.AngleBridge}, store, nil, SchedulerConfig{
		Interval: time.Hour,
		Timeout:  10 * time.Millisecond,
	}, testLogger())

	s.CaptureOnce(context.Background())

	if store.Depth() != 0 {
		t.Error("timed-out grab must not record a frame")
	}
	_, _, lastErr := s.Status()
	if lastErr == nil {
		t.Error("timeout should be recorded in status")
	}
}

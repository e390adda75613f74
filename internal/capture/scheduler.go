package capture

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"bridgewatch/internal/frame"
)

// Classifier assigns an angle to raw frame bytes.
type Classifier interface {
	Classify(ctx context.Context, data []byte) frame.Angle
}

// FrameSink receives successfully captured useful frames for durable
// logging. Best effort only; the scheduler never blocks on it.
type FrameSink interface {
	SaveFrame(f *frame.Frame) error
}

// Scheduler drives periodic capture: one grab immediately at startup,
// then one per interval. Overlapping triggers collapse into a no-op via
// the in-progress flag, so a foreground request racing the background
// timer never starts a second external grab.
type Scheduler struct {
	grabber    Grabber
	classifier Classifier
	store      *frame.Store
	sink       FrameSink // may be nil
	interval   time.Duration
	timeout    time.Duration
	logger     *log.Logger

	inProgress atomic.Bool

	mu          sync.Mutex
	lastAttempt time.Time
	lastSuccess time.Time
	lastErr     error
}

// SchedulerConfig holds capture loop settings.
type SchedulerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// NewScheduler creates a capture scheduler. sink may be nil.
func NewScheduler(grabber Grabber, classifier Classifier, store *frame.Store, sink FrameSink, cfg SchedulerConfig, logger *log.Logger) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		grabber:    grabber,
		classifier: classifier,
		store:      store,
		sink:       sink,
		interval:   interval,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run captures once immediately, then on every tick until the context is
// cancelled. Intended to run in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Printf("[Capture] Scheduler started (interval %v, timeout %v)", s.interval, s.timeout)

	s.CaptureOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("[Capture] Scheduler stopped")
			return
		case <-ticker.C:
			s.CaptureOnce(ctx)
		}
	}
}

// CaptureOnce performs a single grab/classify/record cycle. Returns
// false when another capture was already in flight and this call
// collapsed to a no-op. A failed grab is logged and absorbed; the
// existing buffer keeps serving and the next tick is the retry.
func (s *Scheduler) CaptureOnce(ctx context.Context) bool {
	if !s.inProgress.CompareAndSwap(false, true) {
		s.logger.Printf("[Capture] Capture already in progress, skipping")
		return false
	}
	defer s.inProgress.Store(false)

	now := time.Now()
	s.mu.Lock()
	s.lastAttempt = now
	s.mu.Unlock()

	grabCtx, cancelGrab := context.WithTimeout(ctx, s.timeout)
	data, err := s.grabber.Grab(grabCtx)
	cancelGrab()
	if err != nil {
		s.logger.Printf("[Capture] Frame grab failed: %v", err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return true
	}

	// Classification gets its own budget; a slow grab must not starve it
	// into a spurious useless result.
	classifyCtx, cancelClassify := context.WithTimeout(ctx, s.timeout)
	defer cancelClassify()
	angle := s.classifier.Classify(classifyCtx, data)
	f := &frame.Frame{
		Data:       data,
		CapturedAt: now,
		Angle:      angle,
	}
	s.store.Record(f)

	s.mu.Lock()
	s.lastSuccess = now
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Printf("[Capture] Recorded %s frame (%d bytes, buffer depth %d)", angle, len(data), s.store.Depth())

	if s.sink != nil && angle.Useful() {
		go func() {
			if err := s.sink.SaveFrame(f); err != nil {
				s.logger.Printf("[Capture] Frame persistence failed: %v", err)
			}
		}()
	}
	return true
}

// Status reports the last capture attempt for diagnostics.
func (s *Scheduler) Status() (lastAttempt, lastSuccess time.Time, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAttempt, s.lastSuccess, s.lastErr
}

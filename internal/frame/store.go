package frame

import (
	"sync"
	"time"
)

const (
	// DefaultCapacity bounds the rolling buffer.
	DefaultCapacity = 12
	// DefaultFreshness is the maximum age at which a preserved frame
	// may still be used for analysis.
	DefaultFreshness = 10 * time.Minute
)

// Store holds the rolling buffer of recent frames plus one preserved
// frame per useful angle. The preserved slots survive buffer eviction so
// analysis always has a last-known-good view of each angle to fall back on.
//
// Captures and request handlers interleave, so every read-modify-write
// goes through the mutex.
type Store struct {
	mu        sync.RWMutex
	buffer    []*Frame
	capacity  int
	preserved map[Angle]*Frame
	freshness time.Duration

	now func() time.Time
}

// NewStore creates a frame store. Non-positive arguments fall back to the
// defaults.
func NewStore(capacity int, freshness time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Store{
		buffer:    make([]*Frame, 0, capacity),
		capacity:  capacity,
		preserved: make(map[Angle]*Frame),
		freshness: freshness,
		now:       time.Now,
	}
}

// Record appends a frame to the rolling buffer, evicting the oldest entry
// once at capacity. Eviction shifts in place so the evicted frame's JPEG
// bytes are not pinned by the backing array. Useful angles also overwrite
// their preserved slot unconditionally: capture order is monotonic, so
// the incoming frame is always the newest of its angle.
func (s *Store) Record(f *Frame) {
	if f == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) < s.capacity {
		s.buffer = append(s.buffer, f)
	} else {
		copy(s.buffer, s.buffer[1:])
		s.buffer[len(s.buffer)-1] = f
	}

	if f.Angle.Useful() {
		s.preserved[f.Angle] = f
	}
}

// Latest returns the most recently recorded frame regardless of angle,
// or nil if nothing has been captured yet.
func (s *Store) Latest() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.buffer) == 0 {
		return nil
	}
	return s.buffer[len(s.buffer)-1]
}

// UsefulFrames returns the buffered frames with a useful angle, in
// capture order.
func (s *Store) UsefulFrames() []*Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := make([]*Frame, 0, len(s.buffer))
	for _, f := range s.buffer {
		if f.Angle.Useful() {
			frames = append(frames, f)
		}
	}
	return frames
}

// Preserved returns the preserved frame for an angle, or nil. Stale
// frames are still returned; callers gate on IsFresh.
func (s *Store) Preserved(angle Angle) *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preserved[angle]
}

// IsFresh reports whether a frame is young enough for analysis. The
// boundary is inclusive: a frame aged exactly at the threshold is fresh.
func (s *Store) IsFresh(f *Frame) bool {
	if f == nil {
		return false
	}
	return f.Age(s.now()) <= s.freshness
}

// Depth returns the current rolling buffer length.
func (s *Store) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffer)
}

// PreservedAges returns the age of each populated preserved slot.
// Used by the health endpoint.
func (s *Store) PreservedAges() map[Angle]time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	ages := make(map[Angle]time.Duration, len(s.preserved))
	for angle, f := range s.preserved {
		ages[angle] = f.Age(now)
	}
	return ages
}

// snapshot returns a consistent copy of the buffer and preserved slots
// for the selector to work from without holding the lock.
func (s *Store) snapshot() ([]*Frame, map[Angle]*Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buffer := make([]*Frame, len(s.buffer))
	copy(buffer, s.buffer)

	preserved := make(map[Angle]*Frame, len(s.preserved))
	for angle, f := range s.preserved {
		preserved[angle] = f
	}
	return buffer, preserved
}

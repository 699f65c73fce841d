package paint

import (
	"sync"
	"time"
)

// FrameInterval is the delay between scheduled frames.
const FrameInterval = 16 * time.Millisecond

// FrameScheduler runs a frame callback at some later point. The engine never
// has more than one frame scheduled at a time.
type FrameScheduler interface {
	Schedule(frame func())
}

// TimerScheduler runs frames on a timer goroutine.
type TimerScheduler struct {
	Interval time.Duration
}

// Schedule runs frame after the interval.
func (s TimerScheduler) Schedule(frame func()) {
	interval := s.Interval
	if interval <= 0 {
		interval = FrameInterval
	}
	time.AfterFunc(interval, frame)
}

// ImmediateScheduler runs frames on the scheduling goroutine. Frames
// scheduled while one is running are queued and drained in order, so a
// self-driving animation runs to completion before Schedule returns.
type ImmediateScheduler struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// Schedule runs frame and anything it schedules.
func (s *ImmediateScheduler) Schedule(frame func()) {
	s.mu.Lock()
	s.queue = append(s.queue, frame)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next()
		s.mu.Lock()
	}
	s.running = false
	s.mu.Unlock()
}

// ManualScheduler holds frames until Flush. Useful when frames must run on a
// specific goroutine.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

// Schedule queues frame.
func (s *ManualScheduler) Schedule(frame func()) {
	s.mu.Lock()
	s.pending = append(s.pending, frame)
	s.mu.Unlock()
}

// Pending reports the number of queued frames.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs queued frames once. Frames scheduled by them wait for the next
// Flush. It returns the number of frames run.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	frames := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, f := range frames {
		f()
	}
	return len(frames)
}

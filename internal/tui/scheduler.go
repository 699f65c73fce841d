package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/pronocloud/internal/paint"
)

type frameMsg struct {
	run func()
}

// Scheduler delivers paint frames as Bubble Tea messages so that painting
// happens on the program's update goroutine. Frames scheduled before a
// program is attached are held until Attach.
type Scheduler struct {
	mu       sync.Mutex
	send     func(tea.Msg)
	held     []func()
	interval time.Duration
}

// NewScheduler returns a detached scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{interval: paint.FrameInterval}
}

// Attach starts delivering frames through send.
func (s *Scheduler) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	held := s.held
	s.held = nil
	s.mu.Unlock()
	for _, frame := range held {
		s.Schedule(frame)
	}
}

// Schedule implements paint.FrameScheduler.
func (s *Scheduler) Schedule(frame func()) {
	time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		send := s.send
		if send == nil {
			s.held = append(s.held, frame)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		send(frameMsg{run: frame})
	})
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates "label done/total" on uiOut while a batch renders.
// A nil *spinner is a valid no-op, so single-file runs skip the animation.
type spinner struct {
	label string
	total int
	done  atomic.Int32

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	mu      sync.Mutex
	width   int
}

// newSpinner returns a spinner for total items. It stops on its own when
// ctx is cancelled.
func newSpinner(ctx context.Context, label string, total int) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &spinner{
		label:   label,
		total:   total,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *spinner) Start() {
	if s == nil {
		return
	}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// Advance records one finished item.
func (s *spinner) Advance() {
	if s == nil {
		return
	}
	s.done.Add(1)
}

// Stop ends the animation and clears its line. It is safe to call twice.
func (s *spinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// Cancelled reports whether the spinner has been stopped or its context ended.
func (s *spinner) Cancelled() bool {
	return s != nil && s.ctx.Err() != nil
}

// status is the text drawn after the frame.
func (s *spinner) status() string {
	return fmt.Sprintf("%s %d/%d", s.label, s.done.Load(), s.total)
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.status()
	s.width = max(s.width, len(text)+2)
	fmt.Fprintf(uiOut, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(text))
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(uiOut, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

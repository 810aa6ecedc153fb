package slideshow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stopmo/internal/bitmap"
	"stopmo/internal/logging"
)

// State is the playback state.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// MinDelay is the fastest interval accepted.
	MinDelay = 100 * time.Millisecond
	// DefaultDelay is used when no delay is configured.
	DefaultDelay = 500 * time.Millisecond
)

// Hints shown next to the playback surface.
const (
	HintNeedFrames = "Add 2+ frames to enable slideshow"
	HintPlaying    = "Playing: toggle to pause"
	HintPaused     = "Paused: toggle to resume"
)

// Frames exposes the current preview sequence.
type Frames interface {
	Previews() []*bitmap.Bitmap
}

// Surface receives the frame to display.
type Surface interface {
	Show(frame *bitmap.Bitmap)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDelay sets the initial interval.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.delay = ClampDelay(d) }
}

// WithTickerFactory replaces the wall-clock ticker.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.newTicker = f
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logging.NewComponentLogger(logger, "slideshow") }
}

// WithStatus receives status line updates.
func WithStatus(fn func(string)) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.status = fn
		}
	}
}

// Scheduler drives the slideshow.
type Scheduler struct {
	mu        sync.Mutex
	frames    Frames
	surface   Surface
	newTicker TickerFactory
	logger    *slog.Logger
	status    func(string)

	state State
	index int
	delay time.Duration
	gen   uint64
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New builds a stopped scheduler.
func New(frames Frames, surface Surface, opts ...Option) *Scheduler {
	s := &Scheduler{
		frames:    frames,
		surface:   surface,
		newTicker: NewTimeTicker,
		logger:    logging.NewComponentLogger(nil, "slideshow"),
		status:    func(string) {},
		delay:     DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampDelay enforces MinDelay; non-positive values select DefaultDelay.
func ClampDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultDelay
	}
	if d < MinDelay {
		return MinDelay
	}
	return d
}

// Start begins cycling. With fewer than two frames it stops any running cycle
// and returns false.
func (s *Scheduler) Start(keepIndex bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(keepIndex)
}

func (s *Scheduler) startLocked(keepIndex bool) bool {
	if s.count() < 2 {
		s.cancelLocked()
		s.state = Stopped
		return false
	}
	s.cancelLocked()
	if !keepIndex {
		s.index = 0
	}
	s.gen++
	stop := make(chan struct{})
	s.stop = stop
	ticker := s.newTicker(s.delay)
	s.state = Running
	s.wg.Add(1)
	go s.run(s.gen, ticker, stop)

	s.logger.Debug("slideshow started",
		logging.Duration("delay", s.delay),
		logging.Int("index", s.index),
		logging.Bool("keep_index", keepIndex),
	)
	s.status(fmt.Sprintf("slideshow %dms", s.delay.Milliseconds()))
	return true
}

// Stop cancels the cycle. The cursor is kept unless reset.
func (s *Scheduler) Stop(reset bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.state = Stopped
	if reset {
		s.index = 0
	}
}

// Pause halts a running cycle, keeping the cursor.
func (s *Scheduler) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return false
	}
	s.cancelLocked()
	s.state = Paused
	s.status("slideshow paused")
	return true
}

// Toggle flips between running and paused. Stopped counts as paused.
func (s *Scheduler) Toggle() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count() < 2 {
		return s.state
	}
	if s.state == Running {
		s.cancelLocked()
		s.state = Paused
		s.status("slideshow paused")
		return s.state
	}
	s.startLocked(true)
	return s.state
}

// SetDelay changes the interval, restarting a running cycle in place.
func (s *Scheduler) SetDelay(d time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = ClampDelay(d)
	if s.state == Running {
		s.startLocked(true)
	}
	return s.delay
}

// FramesChanged brings the cursor back in range after the sequence changed
// and stops playback below two frames. A running cycle restarts in place.
func (s *Scheduler) FramesChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.count()
	if s.index >= n {
		s.index = max(0, n-1)
	}
	switch {
	case n < 2:
		s.cancelLocked()
		s.state = Stopped
	case s.state == Running:
		s.startLocked(true)
	}
}

// ShowCurrent draws the frame under the cursor without advancing it.
func (s *Scheduler) ShowCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	previews := s.frames.Previews()
	if len(previews) == 0 || s.surface == nil {
		return
	}
	s.surface.Show(previews[s.index%len(previews)])
}

// State returns the playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Index returns the raw cursor; the displayed frame is Index() % frame count.
func (s *Scheduler) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Delay returns the current interval.
func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Hint describes what the user can do with playback right now.
func (s *Scheduler) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.count() < 2:
		return HintNeedFrames
	case s.state == Running:
		return HintPlaying
	default:
		return HintPaused
	}
}

// Close stops playback and waits for the ticker goroutine to exit.
func (s *Scheduler) Close() {
	s.Stop(false)
	s.wg.Wait()
}

func (s *Scheduler) count() int {
	if s.frames == nil {
		return 0
	}
	return len(s.frames.Previews())
}

func (s *Scheduler) cancelLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.gen++
}

func (s *Scheduler) run(gen uint64, ticker Ticker, stop <-chan struct{}) {
	defer s.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.tick(gen)
		}
	}
}

// tick draws under the lock so a cycle cancelled concurrently can never draw.
func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != Running {
		return
	}
	previews := s.frames.Previews()
	if len(previews) == 0 {
		return
	}
	frame := previews[s.index%len(previews)]
	s.index++
	if s.surface != nil {
		s.surface.Show(frame)
	}
}

// Package scan drives QR detection against a live frame source. A
// session polls frames at a fixed interval and surfaces at most one
// detection, after which the timer and the source are released together.
package scan

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

// DefaultInterval is the detection poll period.
const DefaultInterval = 350 * time.Millisecond

var (
	// ErrCameraUnavailable means the environment has no detection capability.
	ErrCameraUnavailable = errors.New("scanner unavailable")
	// ErrPermissionDenied means the camera stream could not be acquired.
	ErrPermissionDenied = errors.New("camera access denied")
)

// FrameSource produces frames from a live camera or equivalent. Close
// releases the underlying stream.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Detector runs barcode detection on one frame, returning the raw
// payloads of any codes found.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]string, error)
}

// State is the session lifecycle: Idle -> Starting -> Scanning ->
// (Detected | Stopped).
type State int

const (
	StateIdle State = iota
	StateStarting
	StateScanning
	StateDetected
	StateStopped
)

// Detection is the one-shot outcome of a session.
type Detection struct {
	Payload string
}

// Session is one "start scanning" action. At most one detection is ever
// surfaced, even if several codes remain visible across ticks.
type Session struct {
	src      FrameSource
	det      Detector
	interval time.Duration

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	teardown sync.Once
	result   chan Detection
	done     chan struct{}
}

// StartSession acquires the capabilities and begins polling. It fails
// with ErrCameraUnavailable when no detector is available and
// ErrPermissionDenied when the frame source is missing; frame-source
// constructors wrap their own acquisition failures in the latter.
func StartSession(ctx context.Context, src FrameSource, det Detector, interval time.Duration) (*Session, error) {
	if det == nil {
		return nil, ErrCameraUnavailable
	}
	if src == nil {
		return nil, ErrPermissionDenied
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		src:      src,
		det:      det,
		interval: interval,
		state:    StateStarting,
		cancel:   cancel,
		result:   make(chan Detection, 1),
		done:     make(chan struct{}),
	}

	s.setState(StateScanning)
	go s.loop(loopCtx)
	return s, nil
}

func (s *Session) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := s.src.Frame(ctx)
			if err != nil {
				// Treated as "no result this tick".
				continue
			}
			payloads, err := s.det.Detect(ctx, frame)
			if err != nil || len(payloads) == 0 {
				continue
			}
			s.detected(payloads[0])
			return
		}
	}
}

// detected delivers the first payload of the first non-empty detection
// and tears the session down immediately.
func (s *Session) detected(payload string) {
	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return
	}
	s.state = StateDetected
	s.mu.Unlock()

	s.result <- Detection{Payload: payload}
	s.release()
}

// Stop ends the session without a detection. Safe to call repeatedly and
// after a detection; the timer and the stream are released exactly once.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateScanning || s.state == StateStarting {
		s.state = StateStopped
	}
	s.mu.Unlock()

	s.release()
}

// release cancels the poll loop and closes the frame source, once.
func (s *Session) release() {
	s.teardown.Do(func() {
		s.cancel()
		_ = s.src.Close()
		close(s.done)
	})
}

// Result yields the single detection, if any. The channel never carries
// more than one value.
func (s *Session) Result() <-chan Detection {
	return s.result
}

// Done closes when the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Controller enforces the single-session invariant: the polling timer
// and the camera stream are one jointly-owned resource, so starting a
// new session first fully stops the previous one.
type Controller struct {
	mu      sync.Mutex
	current *Session
}

// Start stops any live session, then starts a new one.
func (c *Controller) Start(ctx context.Context, src FrameSource, det Detector, interval time.Duration) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Stop()
		<-c.current.Done()
	}

	session, err := StartSession(ctx, src, det, interval)
	if err != nil {
		return nil, err
	}
	c.current = session
	return session, nil
}

// Stop ends the live session, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

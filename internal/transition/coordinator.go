package transition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ridelink/service-navigation/internal/domain/navigation"
)

// CameraMode selects how the camera frames the map during a transition.
type CameraMode string

const (
	ModeRouteOverview    CameraMode = "route_overview"
	ModeCenterOnDriver   CameraMode = "center_on_driver"
	ModeFollowNavigation CameraMode = "follow_navigation"
)

const (
	// interCommandDelay separates consecutive camera animations so
	// back-to-back transitions do not look jarring.
	interCommandDelay = 100 * time.Millisecond

	// commandTimeoutBuffer is added on top of a command's own duration
	// before the coordinator gives up and falls back.
	commandTimeoutBuffer = time.Second

	// DefaultCommandDuration is used when a command carries no duration.
	DefaultCommandDuration = 500 * time.Millisecond
)

// ErrCoordinatorClosed is returned for commands issued after Close.
var ErrCoordinatorClosed = errors.New("transition coordinator closed")

// CameraCommand is one queued camera movement.
type CameraCommand struct {
	Mode     CameraMode
	Target   navigation.Coordinate
	Zoom     float64
	Bearing  float64
	Duration time.Duration
}

type queuedCommand struct {
	cmd    CameraCommand
	result chan error
}

// Coordinator executes camera and voice side-effects against the renderer
// collaborators. Camera commands drain strictly FIFO, one at a time, each
// raced against its own timeout; a failed or timed-out command triggers a
// single simplified fallback before the failure is reported.
type Coordinator struct {
	renderer MapRenderer
	voice    VoiceAssistant
	logger   *zap.Logger

	queue     chan queuedCommand
	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}

	mu         sync.Mutex
	lastSpoken string
	muted      bool
}

// NewCoordinator creates a coordinator and starts its drain loop. Nil
// collaborators are replaced with explicit no-ops.
func NewCoordinator(renderer MapRenderer, voice VoiceAssistant, muted bool, logger *zap.Logger) *Coordinator {
	if renderer == nil {
		renderer = NoopRenderer{}
	}
	if voice == nil {
		voice = NoopVoice{}
	}
	c := &Coordinator{
		renderer: renderer,
		voice:    voice,
		logger:   logger,
		queue:    make(chan queuedCommand, 16),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
		muted:    muted,
	}
	go c.drain()
	return c
}

// Execute queues a camera command and waits for it to settle.
func (c *Coordinator) Execute(ctx context.Context, cmd CameraCommand) error {
	qc := queuedCommand{cmd: cmd, result: make(chan error, 1)}
	select {
	case <-c.closed:
		return ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.queue <- qc:
	}
	select {
	case err := <-qc.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Announce speaks the instruction unless voice is muted or the text matches
// the last spoken instruction. Voice errors are logged and swallowed.
func (c *Coordinator) Announce(ctx context.Context, text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.muted || text == c.lastSpoken {
		c.mu.Unlock()
		return
	}
	c.lastSpoken = text
	c.mu.Unlock()

	if err := c.voice.Speak(ctx, text); err != nil {
		c.logger.Warn("voice announcement failed", zap.String("text", text), zap.Error(err))
	}
}

// SetMuted toggles voice announcements.
func (c *Coordinator) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
}

// Close stops the drain loop. Queued commands that have not started are
// failed with ErrCoordinatorClosed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
	<-c.done
}

func (c *Coordinator) drain() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			c.failPending()
			return
		case qc := <-c.queue:
			qc.result <- c.executeOne(qc.cmd)
			select {
			case <-c.closed:
				c.failPending()
				return
			case <-time.After(interCommandDelay):
			}
		}
	}
}

func (c *Coordinator) failPending() {
	for {
		select {
		case qc := <-c.queue:
			qc.result <- ErrCoordinatorClosed
		default:
			return
		}
	}
}

func (c *Coordinator) executeOne(cmd CameraCommand) error {
	duration := cmd.Duration
	if duration <= 0 {
		duration = DefaultCommandDuration
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration+commandTimeoutBuffer)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.dispatch(ctx, cmd) }()

	var cmdErr error
	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		cmdErr = err
	case <-ctx.Done():
		cmdErr = fmt.Errorf("camera command %s timed out after %s", cmd.Mode, duration+commandTimeoutBuffer)
	}

	c.logger.Warn("camera command failed, issuing fallback",
		zap.String("mode", string(cmd.Mode)),
		zap.Error(cmdErr),
	)

	// One simplified fallback, then report the original failure.
	fbCtx, fbCancel := context.WithTimeout(context.Background(), commandTimeoutBuffer)
	defer fbCancel()
	if fbErr := c.renderer.CenterOnDriver(fbCtx); fbErr != nil {
		c.logger.Warn("fallback camera command failed", zap.Error(fbErr))
	}
	return cmdErr
}

func (c *Coordinator) dispatch(ctx context.Context, cmd CameraCommand) error {
	switch cmd.Mode {
	case ModeCenterOnDriver:
		return c.renderer.CenterOnDriver(ctx)
	case ModeRouteOverview, ModeFollowNavigation:
		return c.renderer.FlyTo(ctx, cmd.Target, cmd.Zoom, cmd.Bearing)
	default:
		return fmt.Errorf("unknown camera mode %q", cmd.Mode)
	}
}

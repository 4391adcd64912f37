// Package lifecycle runs the event router on a single goroutine: creation,
// every key event and destruction are delivered in order and never
// concurrently.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/buttonhat/internal/button"
)

const defaultQueueSize = 16

var errAlreadyRun = errors.New("host already run")

// Callbacks is the component hosted by a Host.
type Callbacks interface {
	OnCreate()
	OnKeyDown(key button.Key) bool
	OnKeyUp(key button.Key) bool
	OnDestroy()
}

// Notifier reports service state to the supervisor, e.g. "READY=1".
type Notifier func(state string) error

// Option configures a Host.
type Option func(*Host)

// WithNotifier replaces the systemd notifier.
func WithNotifier(n Notifier) Option {
	return func(h *Host) {
		h.notify = n
	}
}

// WithQueueSize sets how many key events may wait for dispatch.
func WithQueueSize(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.queue = n
		}
	}
}

// Host serializes callbacks onto the goroutine that calls Run.
type Host struct {
	queue  int
	events chan button.Event
	quit   chan struct{}
	ran    atomic.Bool
	notify Notifier
	logger *slog.Logger
}

// New creates a host. Sink may be handed out before Run is called.
func New(logger *slog.Logger, opts ...Option) *Host {
	h := &Host{
		queue:  defaultQueueSize,
		quit:   make(chan struct{}),
		notify: sdNotify,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.events = make(chan button.Event, h.queue)
	return h
}

// Sink returns the function input drivers post key events to. Once the host
// starts shutting down, posted events are dropped so a driver being
// unregistered never blocks on a full queue.
func (h *Host) Sink() button.Sink {
	return func(e button.Event) {
		select {
		case h.events <- e:
		case <-h.quit:
		}
	}
}

// Run calls OnCreate, dispatches key events until ctx is done, then calls
// OnDestroy. It can only be called once.
func (h *Host) Run(ctx context.Context, cb Callbacks) error {
	if !h.ran.CompareAndSwap(false, true) {
		return errAlreadyRun
	}

	cb.OnCreate()
	h.sendNotify(daemon.SdNotifyReady)

	var watchdog <-chan time.Time
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		watchdog = ticker.C
		h.logger.Info("Systemd watchdog enabled", "interval", interval)
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case e := <-h.events:
			h.dispatch(cb, e)
		case <-watchdog:
			h.sendNotify(daemon.SdNotifyWatchdog)
		}
	}

	close(h.quit)
	h.sendNotify(daemon.SdNotifyStopping)
	cb.OnDestroy()

	if n := len(h.events); n > 0 {
		h.logger.Debug("Dropped queued key events on shutdown", "count", n)
	}
	return nil
}

func (h *Host) dispatch(cb Callbacks, e button.Event) {
	var handled bool
	switch e.Phase {
	case button.PhaseDown:
		handled = cb.OnKeyDown(e.Key)
	case button.PhaseUp:
		handled = cb.OnKeyUp(e.Key)
	default:
		h.logger.Warn("Unknown key phase", "key", e.Key, "phase", e.Phase)
		return
	}
	h.logger.Debug("Key event dispatched", "key", e.Key, "phase", e.Phase, "handled", handled)
}

func (h *Host) sendNotify(state string) {
	if h.notify == nil {
		return
	}
	if err := h.notify(state); err != nil {
		h.logger.Debug("Failed to notify service manager", "state", state, "error", err)
	}
}

func sdNotify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

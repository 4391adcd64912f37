package button

import (
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/buttonhat/internal/peripheral"
)

const defaultPollInterval = 100 * time.Millisecond

var errStillRegistered = errors.New("driver still registered")

// Option configures a Driver.
type Option func(*Driver)

// WithActiveHigh treats a high level as pressed. Buttons are active-low by
// default, wired to ground against the pull-up.
func WithActiveHigh() Option {
	return func(d *Driver) {
		d.activeLow = false
	}
}

// WithPollInterval bounds how long a single edge wait blocks, and therefore
// how long Unregister can take. Default is 100ms.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) {
		if interval > 0 {
			d.poll = interval
		}
	}
}

// Driver turns level changes on a GPIO input into key events for one key.
//
// The lifecycle is Open, Register, Unregister, Close. Close refuses to release
// the line while the driver is still registered, and Unregister after Close
// is reported as a dangling resource.
type Driver struct {
	key       Key
	mgr       peripheral.Manager
	line      peripheral.Handle[peripheral.GpioLine]
	activeLow bool
	poll      time.Duration
	logger    *slog.Logger

	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// New returns a driver for the named GPIO line bound to key. The line is not
// opened until Open.
func New(mgr peripheral.Manager, name string, key Key, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		key:       key,
		mgr:       mgr,
		line:      peripheral.NewHandle[peripheral.GpioLine](name, peripheral.KindGpioIn),
		activeLow: true,
		poll:      defaultPollInterval,
		logger:    logger.With("key", string(key), "line", name),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key returns the key this driver emits.
func (d *Driver) Key() Key { return d.key }

// Name returns the GPIO line name.
func (d *Driver) Name() string { return d.line.Name() }

// Present reports whether the input line is open.
func (d *Driver) Present() bool { return d.line.Present() }

// Registered reports whether events are being emitted.
func (d *Driver) Registered() bool { return d.stop != nil }

// Open acquires the line and configures it as an edge-detecting input.
func (d *Driver) Open() error {
	return d.line.Open(
		func() (peripheral.GpioLine, error) {
			return d.mgr.OpenGpio(d.line.Name())
		},
		func(l peripheral.GpioLine) (string, error) {
			return "input pull-up both-edges", l.ConfigureInput()
		},
	)
}

// Register starts emitting events to sink. Registering twice is a no-op.
func (d *Driver) Register(sink Sink) error {
	if d.stop != nil {
		return nil
	}
	line, ok := d.line.Get()
	if !ok {
		return peripheral.NewError(peripheral.ErrCodeNotOpen, "register", d.line.Name(), peripheral.KindGpioIn, nil)
	}
	if sink == nil {
		sink = func(Event) {}
	}

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.watch(line, sink, d.stop, d.done)

	d.logger.Debug("Button registered")
	return nil
}

// Unregister stops event emission and waits for the edge watcher to exit.
func (d *Driver) Unregister() error {
	if d.closed {
		return peripheral.NewError(peripheral.ErrCodeDanglingResource, "unregister", d.line.Name(), peripheral.KindGpioIn, nil)
	}
	if d.stop == nil {
		return nil
	}

	close(d.stop)
	<-d.done
	d.stop = nil
	d.done = nil

	d.logger.Debug("Button unregistered")
	return nil
}

// Close releases the line. It is a no-op when already closed.
func (d *Driver) Close() error {
	if d.stop != nil {
		return peripheral.NewError(peripheral.ErrCodeDanglingResource, "close", d.line.Name(), peripheral.KindGpioIn, errStillRegistered)
	}
	d.closed = true
	return d.line.Close()
}

// watch emits one Down per press and one Up per release. Repeated levels,
// including a release of a key already held at registration, emit nothing.
func (d *Driver) watch(line peripheral.GpioLine, sink Sink, stop, done chan struct{}) {
	defer close(done)

	down := false
	for {
		select {
		case <-stop:
			return
		default:
		}

		if !line.WaitForEdge(d.poll) {
			continue
		}

		level, err := line.Read()
		if err != nil {
			d.logger.Warn("Failed to read button level", "error", err)
			continue
		}

		pressed := level
		if d.activeLow {
			pressed = !level
		}

		switch {
		case pressed && !down:
			down = true
			sink(Event{Key: d.key, Phase: PhaseDown})
		case !pressed && down:
			down = false
			sink(Event{Key: d.key, Phase: PhaseUp})
		}
	}
}

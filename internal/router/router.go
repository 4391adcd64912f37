// Package router maps key events from the HAT buttons onto its LEDs, display
// and UART, and owns the acquisition and release of every hardware line.
//
// All four entry points (OnCreate, OnKeyDown, OnKeyUp, OnDestroy) must be
// called from a single goroutine; the router does no locking of its own.
package router

import (
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/buttonhat/internal/board"
	"github.com/smazurov/buttonhat/internal/button"
	"github.com/smazurov/buttonhat/internal/display"
	"github.com/smazurov/buttonhat/internal/events"
	"github.com/smazurov/buttonhat/internal/led"
	"github.com/smazurov/buttonhat/internal/peripheral"
	"github.com/smazurov/buttonhat/internal/uart"
)

// Options configures a Router.
type Options struct {
	Manager  peripheral.Manager
	Bindings board.Bindings
	// Sink receives key events from the input drivers. It must hand them back
	// to the goroutine that calls OnKeyDown and OnKeyUp.
	Sink     button.Sink
	EventBus *events.Bus
	Logger   *slog.Logger

	// ButtonOptions are applied to both input drivers.
	ButtonOptions []button.Option
	// DiagnosticTable writes uart.DiagnosticTable on every key B press.
	DiagnosticTable bool
}

// Router is the event router. Its key to LED mapping is fixed by New.
type Router struct {
	state State

	mgr     peripheral.Manager
	serial  *uart.Channel
	red     *led.Actuator
	green   *led.Actuator
	buttons []*button.Driver
	display *display.Device

	leds   map[button.Key]*led.Actuator
	labels map[button.Key]string

	sink      button.Sink
	bus       *events.Bus
	logger    *slog.Logger
	diagTable bool
}

// New builds a router with every peripheral absent.
func New(opts *Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := opts.Bindings

	r := &Router{
		state:     StateUninitialized,
		mgr:       opts.Manager,
		serial:    uart.New(opts.Manager, b.UART, logger),
		red:       led.New(opts.Manager, b.RedLED, logger),
		green:     led.New(opts.Manager, b.GreenLED, logger),
		display:   display.New(opts.Manager, b.DisplayBus, b.DisplayAddr, logger),
		sink:      opts.Sink,
		bus:       opts.EventBus,
		logger:    logger,
		diagTable: opts.DiagnosticTable,
	}
	r.buttons = []*button.Driver{
		button.New(opts.Manager, b.ButtonA, button.KeyA, logger, opts.ButtonOptions...),
		button.New(opts.Manager, b.ButtonB, button.KeyB, logger, opts.ButtonOptions...),
	}
	r.leds = map[button.Key]*led.Actuator{
		button.KeyA: r.red,
		button.KeyB: r.green,
	}
	r.labels = map[button.Key]string{
		button.KeyA: "LedA",
		button.KeyB: "LedB",
	}
	return r
}

// State returns the current lifecycle state.
func (r *Router) State() State { return r.state }

// OnCreate acquires every peripheral. Each step is attempted even when an
// earlier one failed, and the router becomes ready with whatever opened.
func (r *Router) OnCreate() {
	if r.state != StateUninitialized {
		r.logger.Warn("OnCreate ignored", "state", r.state)
		return
	}
	r.setState(StateInitializing)
	r.logger.Info("Starting event router")

	r.logger.Info("Registering UART device", "uart", r.serial.Name())
	if err := r.serial.Open(); err != nil {
		r.report("Unable to access UART device", err)
	} else {
		r.logger.Info("UART configured", "uart", r.serial.Name(), "mode", r.serial.Mode())
	}

	r.logger.Info("Configuring LED pins")
	for _, a := range []*led.Actuator{r.red, r.green} {
		if err := a.Open(); err != nil {
			r.report("Error configuring LED", err)
		}
	}

	r.logger.Info("Registering button drivers")
	for _, b := range r.buttons {
		if err := b.Open(); err != nil {
			r.report("Error opening button", err)
			continue
		}
		if err := b.Register(r.sink); err != nil {
			r.report("Error registering button", err)
		}
	}

	if err := r.display.Open(); err != nil {
		r.report("Error configuring alphanumeric display", err)
	}

	r.logUartDevices()
	r.setState(StateReady)

	for _, p := range r.Peripherals() {
		r.logger.Info("Peripheral status", "role", p.Role, "name", p.Name, "present", p.Present)
	}
}

// OnKeyDown clears the display, shows the key's label, writes the diagnostic
// table for key B and switches the bound LED on. It returns true only if the
// LED write succeeded.
func (r *Router) OnKeyDown(key button.Key) bool {
	if !r.ready(key, button.PhaseDown) {
		return false
	}

	r.show("")
	actuator, ok := r.leds[key]
	if !ok {
		r.logger.Debug("Unrecognized key", "key", key)
		r.publishKey(key, button.PhaseDown, "", false)
		return false
	}

	r.show(r.labels[key])
	if key == button.KeyB && r.diagTable {
		if err := r.serial.Write(uart.DiagnosticTable()); err != nil {
			r.report("Error printing diagnostic table", err)
		}
	}
	return r.setLED(key, button.PhaseDown, actuator, true)
}

// OnKeyUp switches the bound LED off. It returns true only if the LED write
// succeeded.
func (r *Router) OnKeyUp(key button.Key) bool {
	if !r.ready(key, button.PhaseUp) {
		return false
	}

	actuator, ok := r.leds[key]
	if !ok {
		r.logger.Debug("Unrecognized key", "key", key)
		r.publishKey(key, button.PhaseUp, "", false)
		return false
	}
	return r.setLED(key, button.PhaseUp, actuator, false)
}

// OnDestroy releases every peripheral: input drivers are unregistered before
// any line is closed, then buttons, LEDs, display and UART are closed. Every
// close is attempted. Calling it again is a no-op.
func (r *Router) OnDestroy() {
	if r.state == StateTearingDown || r.state == StateClosed {
		r.logger.Debug("OnDestroy ignored", "state", r.state)
		return
	}
	r.setState(StateTearingDown)

	for _, b := range r.buttons {
		if err := b.Unregister(); err != nil {
			r.report("Error unregistering button driver", err)
		}
	}
	for _, b := range r.buttons {
		if err := b.Close(); err != nil {
			r.report("Error closing button driver", err)
		}
	}
	r.closeLED(r.red, "Error closing red LED GPIO")
	r.closeLED(r.green, "Error closing green LED GPIO")
	if err := r.display.Close(); err != nil {
		r.report("Error closing alphanumeric display", err)
	}
	if err := r.serial.Close(); err != nil {
		r.report("Error closing UART device", err)
	}

	r.setState(StateClosed)
	r.logger.Info("Event router closed")
}

// Peripherals lists every owned peripheral and whether it is present.
func (r *Router) Peripherals() []PeripheralStatus {
	out := []PeripheralStatus{
		{Role: "uart", Name: r.serial.Name(), Present: r.serial.Present()},
		{Role: "led_red", Name: r.red.Name(), Present: r.red.Present()},
		{Role: "led_green", Name: r.green.Name(), Present: r.green.Present()},
	}
	for _, b := range r.buttons {
		out = append(out, PeripheralStatus{
			Role:    "button_" + string(b.Key()),
			Name:    b.Name(),
			Present: b.Present() && b.Registered(),
		})
	}
	return append(out, PeripheralStatus{Role: "display", Name: r.display.Name(), Present: r.display.Present()})
}

// LEDValue returns the last-known value of the LED bound to key.
func (r *Router) LEDValue(key button.Key) (bool, bool) {
	a, ok := r.leds[key]
	if !ok {
		return false, false
	}
	return a.Value(), true
}

func (r *Router) ready(key button.Key, phase button.Phase) bool {
	if r.state == StateReady {
		return true
	}
	r.logger.Debug("Key event outside ready state", "key", key, "phase", phase, "state", r.state)
	r.publishKey(key, phase, "", false)
	return false
}

func (r *Router) setLED(key button.Key, phase button.Phase, a *led.Actuator, on bool) bool {
	err := a.SetValue(on)
	if err != nil {
		r.report("Error setting LED", err)
	} else {
		r.publishLED(a.Name(), on)
	}
	r.publishKey(key, phase, a.Name(), err == nil)
	return err == nil
}

// closeLED releases an LED line. A line that was open ends up off, even when
// the close itself reports an error.
func (r *Router) closeLED(a *led.Actuator, msg string) {
	wasOpen := a.Present()
	if err := a.Close(); err != nil {
		r.report(msg, err)
	}
	if wasOpen {
		r.publishLED(a.Name(), false)
	}
}

// show writes to the display. An absent display is expected on boards
// without one and only logged at debug.
func (r *Router) show(text string) {
	var err error
	if text == "" {
		err = r.display.Clear()
	} else {
		err = r.display.Display(text)
	}
	switch {
	case err == nil:
	case errors.Is(err, peripheral.ErrNotOpen):
		r.logger.Debug("Display not open", "text", text)
	default:
		r.report("Error writing to display", err)
	}
}

func (r *Router) logUartDevices() {
	devices := r.mgr.ListUartDevices()
	if len(devices) == 0 {
		r.logger.Info("No UART port available on this device")
		return
	}
	r.logger.Info("List of available UART devices", "devices", devices)
}

// report logs a peripheral failure and publishes it. It never propagates.
func (r *Router) report(msg string, err error) {
	r.logger.Error(msg, "code", peripheral.CodeOf(err), "error", err)

	ev := events.PeripheralErrorEvent{
		Error:     err.Error(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	var pe *peripheral.Error
	if errors.As(err, &pe) {
		ev.Name = pe.Name
		ev.Kind = string(pe.Kind)
		ev.Op = pe.Op
		ev.Code = pe.Code
	}
	r.bus.Publish(ev)
}

func (r *Router) publishKey(key button.Key, phase button.Phase, ledName string, handled bool) {
	r.bus.Publish(events.KeyDispatchedEvent{
		Key:       string(key),
		Phase:     string(phase),
		Handled:   handled,
		LED:       ledName,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (r *Router) publishLED(name string, on bool) {
	r.bus.Publish(events.LEDChangedEvent{
		LED:       name,
		On:        on,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (r *Router) setState(to State) {
	from := r.state
	r.state = to
	r.logger.Debug("Router state changed", "from", from, "to", to)
	r.bus.Publish(events.RouterStateChangedEvent{
		From:      string(from),
		To:        string(to),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

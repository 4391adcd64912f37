// Package led drives the HAT's LEDs as GPIO outputs.
package led

import (
	"log/slog"

	"github.com/smazurov/buttonhat/internal/peripheral"
)

// Actuator is one LED on a GPIO output line. It is off (low) whenever it is
// opened and its last-known value does not survive a close.
type Actuator struct {
	mgr    peripheral.Manager
	line   peripheral.Handle[peripheral.GpioLine]
	value  bool
	logger *slog.Logger
}

// New returns an actuator for the named line. The line is not opened until Open.
func New(mgr peripheral.Manager, name string, logger *slog.Logger) *Actuator {
	return &Actuator{
		mgr:    mgr,
		line:   peripheral.NewHandle[peripheral.GpioLine](name, peripheral.KindGpioOut),
		logger: logger.With("line", name),
	}
}

// Open acquires the line as an output driven low.
func (a *Actuator) Open() error {
	err := a.line.Open(
		func() (peripheral.GpioLine, error) {
			return a.mgr.OpenGpio(a.line.Name())
		},
		func(l peripheral.GpioLine) (string, error) {
			return "output initially low", l.ConfigureOutput(false)
		},
	)
	if err != nil {
		return err
	}
	a.value = false
	return nil
}

// SetValue switches the LED. Setting the current value again is allowed. A
// failed write leaves the last-known value unchanged; it is not retried.
func (a *Actuator) SetValue(on bool) error {
	line, ok := a.line.Get()
	if !ok {
		return peripheral.NewError(peripheral.ErrCodeNotOpen, "set value", a.line.Name(), peripheral.KindGpioOut, nil)
	}
	if err := line.Write(on); err != nil {
		return peripheral.NewError(peripheral.ErrCodeWriteFailed, "set value", a.line.Name(), peripheral.KindGpioOut, err)
	}
	a.value = on
	a.logger.Debug("LED set", "on", on)
	return nil
}

// Value returns the last value successfully written.
func (a *Actuator) Value() bool { return a.value }

// Name returns the GPIO line name.
func (a *Actuator) Name() string { return a.line.Name() }

// Present reports whether the line is open.
func (a *Actuator) Present() bool { return a.line.Present() }

// Close releases the line. Closing an absent actuator is a no-op.
func (a *Actuator) Close() error {
	a.value = false
	return a.line.Close()
}

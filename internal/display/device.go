// Package display wraps the HAT's alphanumeric display.
package display

import (
	"log/slog"

	"github.com/smazurov/buttonhat/internal/peripheral"
)

// Device is the alphanumeric display. Text longer than the display is
// truncated by the display driver, not here.
type Device struct {
	mgr    peripheral.Manager
	bus    string
	addr   uint16
	handle peripheral.Handle[peripheral.Display]
	logger *slog.Logger
}

// New returns a display on the given I2C bus and address. Nothing is opened
// until Open.
func New(mgr peripheral.Manager, bus string, addr uint16, logger *slog.Logger) *Device {
	return &Device{
		mgr:    mgr,
		bus:    bus,
		addr:   addr,
		handle: peripheral.NewHandle[peripheral.Display](bus, peripheral.KindDisplay),
		logger: logger.With("bus", bus, "addr", addr),
	}
}

// Open acquires the display, enables it and blanks it. If enabling fails the
// display is released again.
func (d *Device) Open() error {
	return d.handle.Open(
		func() (peripheral.Display, error) {
			return d.mgr.OpenDisplay(d.bus, d.addr)
		},
		func(disp peripheral.Display) (string, error) {
			if err := disp.SetEnabled(true); err != nil {
				return "", err
			}
			return "enabled", disp.Clear()
		},
	)
}

// Display shows text.
func (d *Device) Display(text string) error {
	disp, ok := d.handle.Get()
	if !ok {
		return peripheral.NewError(peripheral.ErrCodeNotOpen, "display", d.bus, peripheral.KindDisplay, nil)
	}
	if err := disp.Display(text); err != nil {
		return peripheral.NewError(peripheral.ErrCodeWriteFailed, "display", d.bus, peripheral.KindDisplay, err)
	}
	return nil
}

// Clear blanks the display.
func (d *Device) Clear() error {
	disp, ok := d.handle.Get()
	if !ok {
		return peripheral.NewError(peripheral.ErrCodeNotOpen, "clear", d.bus, peripheral.KindDisplay, nil)
	}
	if err := disp.Clear(); err != nil {
		return peripheral.NewError(peripheral.ErrCodeWriteFailed, "clear", d.bus, peripheral.KindDisplay, err)
	}
	return nil
}

// Name returns the I2C bus the display sits on.
func (d *Device) Name() string { return d.bus }

// Present reports whether the display is open.
func (d *Device) Present() bool { return d.handle.Present() }

// Close releases the display. It is attempted even after failed writes and
// is a no-op when the display is absent.
func (d *Device) Close() error {
	return d.handle.Close()
}

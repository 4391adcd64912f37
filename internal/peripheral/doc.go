// Package peripheral owns the hardware lines used by buttonhat.
//
// A line is acquired through a Manager and held in a Handle, which is either
// present (opened and fully configured) or absent. Every operation checks
// presence first; failures are reported as *Error values carrying one of the
// ErrCode constants.
//
// Hardware is the production Manager: GPIO pins and I2C through periph.io,
// kernel LEDs through /sys/class/leds and UARTs through github.com/tarm/serial.
package peripheral

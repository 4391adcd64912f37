package peripheral

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioutil"
)

var errLineClosed = errors.New("line closed")

// gpioLine is a periph.io pin. in is the debounced view used for reads once
// the pin is configured as an input.
type gpioLine struct {
	name     string
	pin      gpio.PinIO
	in       gpio.PinIO
	denoise  time.Duration
	debounce time.Duration
	closed   bool
}

func (l *gpioLine) Name() string { return l.name }

func (l *gpioLine) ConfigureInput() error {
	if l.closed {
		return errLineClosed
	}
	if err := l.pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return fmt.Errorf("set %s as input: %w", l.name, err)
	}
	l.in = l.pin
	if l.denoise > 0 || l.debounce > 0 {
		d, err := gpioutil.Debounce(l.pin, l.denoise, l.debounce, gpio.BothEdges)
		if err != nil {
			return fmt.Errorf("debounce %s: %w", l.name, err)
		}
		l.in = d
	}
	return nil
}

func (l *gpioLine) ConfigureOutput(initial bool) error {
	if l.closed {
		return errLineClosed
	}
	if err := l.pin.Out(gpio.Level(initial)); err != nil {
		return fmt.Errorf("set %s as output: %w", l.name, err)
	}
	l.in = nil
	return nil
}

func (l *gpioLine) Read() (bool, error) {
	if l.closed {
		return false, errLineClosed
	}
	if l.in == nil {
		return bool(l.pin.Read()), nil
	}
	return bool(l.in.Read()), nil
}

func (l *gpioLine) Write(level bool) error {
	if l.closed {
		return errLineClosed
	}
	return l.pin.Out(gpio.Level(level))
}

func (l *gpioLine) WaitForEdge(timeout time.Duration) bool {
	if l.closed || l.in == nil {
		time.Sleep(timeout)
		return false
	}
	return l.in.WaitForEdge(timeout)
}

// Close halts edge detection and leaves outputs low.
func (l *gpioLine) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	if l.in == nil {
		if err := l.pin.Out(gpio.Low); err != nil {
			errs = append(errs, err)
		}
	}
	if err := l.pin.Halt(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

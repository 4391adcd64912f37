package peripheral

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/devices/v3/ht16k33"
)

// alphanumericWidth is the number of characters on the HAT's display.
const alphanumericWidth = 4

var errDisplayDisabled = errors.New("display disabled")

// segmentDisplay is the part of periph's ht16k33.Display this package uses.
type segmentDisplay interface {
	DisplayString(text string, decimals bool) error
	Halt() error
}

var _ segmentDisplay = (*ht16k33.Display)(nil)

// alphanumeric is a Display backed by an HT16K33 14-segment controller.
// periph initialises the controller (oscillator and display on) when the
// device is created.
type alphanumeric struct {
	dev     segmentDisplay
	bus     io.Closer
	enabled bool
}

func newAlphanumeric(dev segmentDisplay, bus io.Closer) *alphanumeric {
	return &alphanumeric{dev: dev, bus: bus, enabled: true}
}

// SetEnabled blanks the display when disabled. Text written while disabled
// is refused.
func (a *alphanumeric) SetEnabled(enabled bool) error {
	if !enabled {
		if err := a.dev.Halt(); err != nil {
			return fmt.Errorf("ht16k33 halt: %w", err)
		}
	}
	a.enabled = enabled
	return nil
}

// Display shows the first four characters of text.
func (a *alphanumeric) Display(text string) error {
	if !a.enabled {
		return errDisplayDisabled
	}
	if r := []rune(text); len(r) > alphanumericWidth {
		text = string(r[:alphanumericWidth])
	}
	if err := a.dev.DisplayString(text, false); err != nil {
		return fmt.Errorf("ht16k33 write %q: %w", text, err)
	}
	return nil
}

// Clear blanks all digits.
func (a *alphanumeric) Clear() error {
	if err := a.dev.Halt(); err != nil {
		return fmt.Errorf("ht16k33 clear: %w", err)
	}
	return nil
}

// Close blanks the display and releases the bus. The bus is closed even if
// blanking fails.
func (a *alphanumeric) Close() error {
	return errors.Join(a.Clear(), a.bus.Close())
}

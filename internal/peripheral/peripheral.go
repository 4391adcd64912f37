package peripheral

import (
	"io"
	"time"
)

// Kind identifies what sort of hardware line a handle refers to.
type Kind string

// Handle kinds.
const (
	KindGpioIn  Kind = "gpio-in"
	KindGpioOut Kind = "gpio-out"
	KindUart    Kind = "uart"
	KindDisplay Kind = "display-bus"
)

// GpioLine is one digital line as opened by a Manager. It is unconfigured until
// ConfigureInput or ConfigureOutput succeeds.
type GpioLine interface {
	io.Closer
	Name() string
	// ConfigureInput sets the line as an input with pull-up and edge detection
	// on both edges. Debouncing, when the backend supports it, happens here.
	ConfigureInput() error
	// ConfigureOutput sets the line as an output driven to initial.
	ConfigureOutput(initial bool) error
	// Read returns the current level, true for high.
	Read() (bool, error)
	// Write drives an output line; true for high.
	Write(level bool) error
	// WaitForEdge blocks until an edge is seen or timeout passes.
	// It returns false on timeout.
	WaitForEdge(timeout time.Duration) bool
}

// Parity is the UART parity mode.
type Parity string

// Parity modes.
const (
	ParityNone Parity = "none"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// UartConfig is the framing applied to a UART line.
type UartConfig struct {
	Baud     int
	DataBits int
	Parity   Parity
	StopBits int
}

// UartLine is one serial line as opened by a Manager. Writes fail until
// Configure succeeds.
type UartLine interface {
	io.Closer
	Name() string
	Configure(cfg UartConfig) error
	Write(p []byte) (int, error)
}

// Display is an addressable alphanumeric display on a bus. Text longer than
// the display is truncated by the implementation.
type Display interface {
	io.Closer
	SetEnabled(enabled bool) error
	Display(text string) error
	Clear() error
}

// Manager opens hardware lines by logical name.
type Manager interface {
	OpenGpio(name string) (GpioLine, error)
	OpenUart(name string) (UartLine, error)
	OpenDisplay(bus string, addr uint16) (Display, error)
	// ListUartDevices is informational only.
	ListUartDevices() []string
}

package peripheral

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ht16k33"
	"periph.io/x/host/v3"
)

// LEDPrefix selects a /sys/class/leds entry instead of a GPIO pin, e.g. "led:ACT".
const LEDPrefix = "led:"

const (
	defaultDevRoot = "/dev"
	defaultLEDRoot = "/sys/class/leds"
)

// uartPatterns are the tty names that commonly back a board UART.
var uartPatterns = []string{"ttyS*", "ttyAMA*", "ttyUSB*", "ttyACM*", "serial[0-9]*"}

// HardwareOptions configures the periph.io backed Manager.
type HardwareOptions struct {
	// Denoise and Debounce are passed to gpioutil.Debounce for input lines.
	// Zero disables the filter.
	Denoise  time.Duration
	Debounce time.Duration

	// UartAliases maps logical UART names (e.g. "UART0") to device paths.
	UartAliases map[string]string

	DevRoot string
	LEDRoot string
	Logger  *slog.Logger
}

var _ Manager = (*Hardware)(nil)

// Hardware opens lines on the running board through periph.io host drivers,
// the kernel LED class and the tty layer.
type Hardware struct {
	opts   HardwareOptions
	logger *slog.Logger
}

// NewHardware loads the periph.io host drivers and returns a Manager for them.
func NewHardware(opts HardwareOptions) (*Hardware, error) {
	if opts.DevRoot == "" {
		opts.DevRoot = defaultDevRoot
	}
	if opts.LEDRoot == "" {
		opts.LEDRoot = defaultLEDRoot
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}
	logger.Debug("Host drivers loaded",
		"loaded", len(state.Loaded),
		"skipped", len(state.Skipped),
		"failed", len(state.Failed))
	for _, f := range state.Failed {
		logger.Debug("Host driver failed to load", "driver", f.D.String(), "error", f.Err)
	}

	return &Hardware{opts: opts, logger: logger}, nil
}

// OpenGpio looks up a GPIO pin by its periph name ("GPIO6", "P1_31") or a
// kernel LED when the name carries LEDPrefix.
func (h *Hardware) OpenGpio(name string) (GpioLine, error) {
	if ledName, ok := strings.CutPrefix(name, LEDPrefix); ok {
		line, err := openSysfsLED(name, filepath.Join(h.opts.LEDRoot, ledName))
		if err != nil {
			return nil, err
		}
		return line, nil
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, NewError(ErrCodeNotFound, "open", name, "", nil)
	}
	return &gpioLine{
		name:     name,
		pin:      pin,
		denoise:  h.opts.Denoise,
		debounce: h.opts.Debounce,
	}, nil
}

// OpenUart resolves name through the alias table and returns an unconfigured
// serial line. The port itself is opened by Configure.
func (h *Hardware) OpenUart(name string) (UartLine, error) {
	path := h.resolveUart(name)
	if _, err := os.Stat(path); err != nil {
		return nil, NewError(ErrCodeNotFound, "open", name, KindUart, err)
	}
	return &serialLine{name: name, path: path}, nil
}

func (h *Hardware) resolveUart(name string) string {
	if path, ok := h.opts.UartAliases[name]; ok {
		return path
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(h.opts.DevRoot, name)
}

// OpenDisplay opens an HT16K33 backed 14-segment display on the named I2C bus.
// An empty bus selects the first bus periph knows about.
func (h *Hardware) OpenDisplay(bus string, addr uint16) (Display, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, NewError(ErrCodeNotFound, "open", bus, KindDisplay, err)
	}
	dev, err := ht16k33.NewAlphaNumericDisplay(b, addr)
	if err != nil {
		_ = b.Close()
		return nil, NewError(ErrCodeOpenFailed, "open", bus, KindDisplay, err)
	}
	return newAlphanumeric(dev, b), nil
}

// ListUartDevices returns the tty devices present under DevRoot.
func (h *Hardware) ListUartDevices() []string {
	return ListUartDevices(h.opts.DevRoot)
}

// ListUartDevices returns the sorted tty devices under devRoot that commonly
// back a UART. The result is empty, never nil, when there are none.
func ListUartDevices(devRoot string) []string {
	if devRoot == "" {
		devRoot = defaultDevRoot
	}
	seen := make(map[string]bool)
	devices := []string{}
	for _, pattern := range uartPatterns {
		matches, err := filepath.Glob(filepath.Join(devRoot, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				devices = append(devices, m)
			}
		}
	}
	sort.Strings(devices)
	return devices
}

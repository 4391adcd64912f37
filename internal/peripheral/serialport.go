package peripheral

import (
	"fmt"

	"github.com/tarm/serial"
)

// serialLine opens its tty lazily: tarm/serial takes the framing at open
// time, so Configure (re)opens the port.
type serialLine struct {
	name string
	path string
	port *serial.Port
}

func (l *serialLine) Name() string { return l.name }

func (l *serialLine) Configure(cfg UartConfig) error {
	sc, err := serialConfig(l.path, cfg)
	if err != nil {
		return err
	}
	if l.port != nil {
		if err := l.port.Close(); err != nil {
			return fmt.Errorf("failed to close serial port %s for reconfigure: %w", l.path, err)
		}
		l.port = nil
	}
	port, err := serial.OpenPort(sc)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", l.path, err)
	}
	l.port = port
	return nil
}

func (l *serialLine) Write(p []byte) (int, error) {
	if l.port == nil {
		return 0, NewError(ErrCodeNotOpen, "write", l.name, KindUart, nil)
	}
	return l.port.Write(p)
}

func (l *serialLine) Close() error {
	if l.port == nil {
		return nil
	}
	port := l.port
	l.port = nil
	return port.Close()
}

func serialConfig(path string, cfg UartConfig) (*serial.Config, error) {
	sc := &serial.Config{
		Name: path,
		Baud: cfg.Baud,
		Size: byte(cfg.DataBits),
	}

	switch cfg.Parity {
	case ParityNone, "":
		sc.Parity = serial.ParityNone
	case ParityOdd:
		sc.Parity = serial.ParityOdd
	case ParityEven:
		sc.Parity = serial.ParityEven
	default:
		return nil, fmt.Errorf("unsupported parity %q", cfg.Parity)
	}

	switch cfg.StopBits {
	case 1, 0:
		sc.StopBits = serial.Stop1
	case 2:
		sc.StopBits = serial.Stop2
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", cfg.StopBits)
	}

	return sc, nil
}

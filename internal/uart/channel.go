// Package uart provides the serial channel the router writes diagnostics to.
package uart

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smazurov/buttonhat/internal/peripheral"
)

// Config is the fixed framing: 9600 baud, 8N1. It is applied once at open.
var Config = peripheral.UartConfig{
	Baud:     9600,
	DataBits: 8,
	Parity:   peripheral.ParityNone,
	StopBits: 1,
}

// Channel is a write-only serial line.
type Channel struct {
	mgr    peripheral.Manager
	line   peripheral.Handle[peripheral.UartLine]
	logger *slog.Logger
}

// New returns a channel for the named UART. Nothing is opened until Open.
func New(mgr peripheral.Manager, name string, logger *slog.Logger) *Channel {
	return &Channel{
		mgr:    mgr,
		line:   peripheral.NewHandle[peripheral.UartLine](name, peripheral.KindUart),
		logger: logger.With("uart", name),
	}
}

// Open acquires the UART and applies Config.
func (c *Channel) Open() error {
	return c.line.Open(
		func() (peripheral.UartLine, error) {
			return c.mgr.OpenUart(c.line.Name())
		},
		func(l peripheral.UartLine) (string, error) {
			mode := fmt.Sprintf("%d %d%s%d", Config.Baud, Config.DataBits,
				strings.ToUpper(string(Config.Parity)[:1]), Config.StopBits)
			return mode, l.Configure(Config)
		},
	)
}

// Write sends p. When the channel is absent the write is skipped with a
// warning and nil is returned.
func (c *Channel) Write(p []byte) error {
	line, ok := c.line.Get()
	if !ok {
		c.logger.Warn("UART not open, dropping write", "bytes", len(p))
		return nil
	}
	if _, err := line.Write(p); err != nil {
		return peripheral.NewError(peripheral.ErrCodeWriteFailed, "write", c.line.Name(), peripheral.KindUart, err)
	}
	return nil
}

// Name returns the UART name.
func (c *Channel) Name() string { return c.line.Name() }

// Present reports whether the UART is open.
func (c *Channel) Present() bool { return c.line.Present() }

// Mode returns the applied framing, e.g. "9600 8N1", or "" when absent.
func (c *Channel) Mode() string { return c.line.Mode() }

// Close releases the UART. Closing an absent channel is a no-op.
func (c *Channel) Close() error {
	return c.line.Close()
}

// DiagnosticTable is the fixed payload written when key B goes down: a
// column header, then sixteen rows each labelled with a hex digit.
func DiagnosticTable() []byte {
	var sb strings.Builder
	sb.WriteString("0123456789abcdef")
	for row := 0; row < 16; row++ {
		sb.WriteString(strconv.FormatInt(int64(row), 16))
		sb.WriteString(strings.Repeat("x", 16))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

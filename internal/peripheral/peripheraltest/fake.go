// Package peripheraltest provides an in-memory peripheral.Manager for tests.
//
// Lines are created on first use, so a test can arm failures before the code
// under test opens them:
//
//	mgr := peripheraltest.NewManager()
//	mgr.Line("GPIO6").WriteErr = errors.New("bus fault")
//	mgr.FailOpen("UART0", errors.New("no such device"))
package peripheraltest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/buttonhat/internal/peripheral"
)

var errClosed = errors.New("fake line closed")

// Manager is a fake peripheral.Manager that journals every operation.
type Manager struct {
	mu       sync.Mutex
	lines    map[string]*Line
	uarts    map[string]*Uart
	displays map[string]*Display
	openErrs map[string]error
	journal  []string

	// UartDevices is returned by ListUartDevices.
	UartDevices []string
}

// NewManager returns an empty fake manager.
func NewManager() *Manager {
	return &Manager{
		lines:    make(map[string]*Line),
		uarts:    make(map[string]*Uart),
		displays: make(map[string]*Display),
		openErrs: make(map[string]error),
	}
}

// FailOpen makes the next and all later opens of name fail with err.
func (m *Manager) FailOpen(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[name] = err
}

// Journal returns the recorded operations in order.
func (m *Manager) Journal() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.journal))
	copy(out, m.journal)
	return out
}

func (m *Manager) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, fmt.Sprintf(format, args...))
}

func (m *Manager) openErr(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openErrs[name]
}

// Line returns the fake GPIO line for name, creating it if needed.
func (m *Manager) Line(name string) *Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[name]
	if !ok {
		l = &Line{name: name, mgr: m, level: true, edges: make(chan bool, 16)}
		m.lines[name] = l
	}
	return l
}

// Uart returns the fake UART for name, creating it if needed.
func (m *Manager) Uart(name string) *Uart {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uarts[name]
	if !ok {
		u = &Uart{name: name, mgr: m}
		m.uarts[name] = u
	}
	return u
}

// Display returns the fake display on bus, creating it if needed.
func (m *Manager) Display(bus string) *Display {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.displays[bus]
	if !ok {
		d = &Display{bus: bus, mgr: m, width: 4}
		m.displays[bus] = d
	}
	return d
}

// OpenGpio implements peripheral.Manager.
func (m *Manager) OpenGpio(name string) (peripheral.GpioLine, error) {
	if err := m.openErr(name); err != nil {
		m.record("open-fail %s", name)
		return nil, err
	}
	l := m.Line(name)
	l.reopen()
	m.record("open %s", name)
	return l, nil
}

// OpenUart implements peripheral.Manager.
func (m *Manager) OpenUart(name string) (peripheral.UartLine, error) {
	if err := m.openErr(name); err != nil {
		m.record("open-fail %s", name)
		return nil, err
	}
	u := m.Uart(name)
	u.reopen()
	m.record("open %s", name)
	return u, nil
}

// OpenDisplay implements peripheral.Manager.
func (m *Manager) OpenDisplay(bus string, addr uint16) (peripheral.Display, error) {
	if err := m.openErr(bus); err != nil {
		m.record("open-fail %s", bus)
		return nil, err
	}
	d := m.Display(bus)
	d.reopen(addr)
	m.record("open %s", bus)
	return d, nil
}

// ListUartDevices implements peripheral.Manager.
func (m *Manager) ListUartDevices() []string {
	return m.UartDevices
}

// Line is a fake GPIO line. Its level idles high, as with a pull-up; Press
// drives it low.
type Line struct {
	name string
	mgr  *Manager

	mu       sync.Mutex
	mode     string
	level    bool
	writes   []bool
	closed   bool
	waiters  int
	dangling bool
	edges    chan bool

	ConfigureErr error
	ReadErr      error
	WriteErr     error
	CloseErr     error
}

func (l *Line) reopen() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = false
	l.mode = ""
}

// Name implements peripheral.GpioLine.
func (l *Line) Name() string { return l.name }

// ConfigureInput implements peripheral.GpioLine.
func (l *Line) ConfigureInput() error {
	l.mgr.record("configure-in %s", l.name)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ConfigureErr != nil {
		return l.ConfigureErr
	}
	l.mode = "in"
	return nil
}

// ConfigureOutput implements peripheral.GpioLine.
func (l *Line) ConfigureOutput(initial bool) error {
	l.mgr.record("configure-out %s %t", l.name, initial)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ConfigureErr != nil {
		return l.ConfigureErr
	}
	l.mode = "out"
	l.level = initial
	return nil
}

// Read implements peripheral.GpioLine.
func (l *Line) Read() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, errClosed
	}
	if l.ReadErr != nil {
		return false, l.ReadErr
	}
	return l.level, nil
}

// Write implements peripheral.GpioLine.
func (l *Line) Write(level bool) error {
	l.mgr.record("write %s %t", l.name, level)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errClosed
	}
	if l.WriteErr != nil {
		return l.WriteErr
	}
	l.level = level
	l.writes = append(l.writes, level)
	return nil
}

// WaitForEdge implements peripheral.GpioLine by delivering levels queued with
// Press, Release or Edge.
func (l *Line) WaitForEdge(timeout time.Duration) bool {
	l.mu.Lock()
	l.waiters++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.waiters--
		l.mu.Unlock()
	}()

	select {
	case level := <-l.edges:
		l.mu.Lock()
		l.level = level
		l.mu.Unlock()
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close implements peripheral.GpioLine. Closing while a reader is still
// blocked in WaitForEdge is recorded as a dangling use.
func (l *Line) Close() error {
	l.mgr.record("close %s", l.name)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiters > 0 {
		l.dangling = true
	}
	l.closed = true
	return l.CloseErr
}

// Edge queues a level change.
func (l *Line) Edge(level bool) { l.edges <- level }

// Press queues a button press on an active-low input.
func (l *Line) Press() { l.Edge(false) }

// Release queues a button release on an active-low input.
func (l *Line) Release() { l.Edge(true) }

// Writes returns the levels written so far.
func (l *Line) Writes() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bool, len(l.writes))
	copy(out, l.writes)
	return out
}

// Level returns the current level.
func (l *Line) Level() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Mode returns "in", "out" or "" when unconfigured.
func (l *Line) Mode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Closed reports whether Close was called since the last open.
func (l *Line) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Dangling reports whether the line was closed while still being watched.
func (l *Line) Dangling() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dangling
}

// Uart is a fake serial line.
type Uart struct {
	name string
	mgr  *Manager

	mu     sync.Mutex
	config *peripheral.UartConfig
	writes [][]byte
	closed bool

	ConfigureErr error
	WriteErr     error
	CloseErr     error
}

func (u *Uart) reopen() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = false
	u.config = nil
}

// Name implements peripheral.UartLine.
func (u *Uart) Name() string { return u.name }

// Configure implements peripheral.UartLine.
func (u *Uart) Configure(cfg peripheral.UartConfig) error {
	u.mgr.record("configure %s %d-%d-%s-%d", u.name, cfg.Baud, cfg.DataBits, cfg.Parity, cfg.StopBits)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.ConfigureErr != nil {
		return u.ConfigureErr
	}
	u.config = &cfg
	return nil
}

// Write implements peripheral.UartLine.
func (u *Uart) Write(p []byte) (int, error) {
	u.mgr.record("write %s %d", u.name, len(p))
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed || u.config == nil {
		return 0, errClosed
	}
	if u.WriteErr != nil {
		return 0, u.WriteErr
	}
	u.writes = append(u.writes, append([]byte(nil), p...))
	return len(p), nil
}

// Close implements peripheral.UartLine.
func (u *Uart) Close() error {
	u.mgr.record("close %s", u.name)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	return u.CloseErr
}

// Config returns the applied framing, or nil if never configured.
func (u *Uart) Config() *peripheral.UartConfig {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.config
}

// Writes returns the payloads written so far.
func (u *Uart) Writes() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([][]byte, len(u.writes))
	copy(out, u.writes)
	return out
}

// Closed reports whether Close was called since the last open.
func (u *Uart) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

// Display is a fake alphanumeric display.
type Display struct {
	bus   string
	mgr   *Manager
	width int

	mu      sync.Mutex
	addr    uint16
	enabled bool
	text    string
	history []string
	closed  bool

	EnableErr  error
	DisplayErr error
	CloseErr   error
}

func (d *Display) reopen(addr uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addr = addr
	d.closed = false
}

// SetEnabled implements peripheral.Display.
func (d *Display) SetEnabled(enabled bool) error {
	d.mgr.record("enable %s %t", d.bus, enabled)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.EnableErr != nil {
		return d.EnableErr
	}
	d.enabled = enabled
	return nil
}

// Display implements peripheral.Display, truncating like the hardware.
func (d *Display) Display(text string) error {
	d.mgr.record("display %s %q", d.bus, text)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DisplayErr != nil {
		return d.DisplayErr
	}
	if r := []rune(text); len(r) > d.width {
		text = string(r[:d.width])
	}
	d.text = text
	d.history = append(d.history, text)
	return nil
}

// Clear implements peripheral.Display.
func (d *Display) Clear() error {
	d.mgr.record("clear %s", d.bus)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DisplayErr != nil {
		return d.DisplayErr
	}
	d.text = ""
	d.history = append(d.history, "")
	return nil
}

// Close implements peripheral.Display.
func (d *Display) Close() error {
	d.mgr.record("close %s", d.bus)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return d.CloseErr
}

// Text returns what the display currently shows.
func (d *Display) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// History returns every text shown, with "" for clears.
func (d *Display) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.history))
	copy(out, d.history)
	return out
}

// Enabled reports whether the display was enabled.
func (d *Display) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Closed reports whether Close was called since the last open.
func (d *Display) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

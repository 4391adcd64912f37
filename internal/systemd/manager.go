// Package systemd controls the buttonhat unit over D-Bus.
package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultUnit is the unit name the packaged service installs.
const DefaultUnit = "buttonhat.service"

// Manager starts, stops and inspects one systemd unit.
type Manager struct {
	conn *dbus.Conn
	unit string
}

// NewManager connects to the system bus, or the user bus when user is set.
func NewManager(ctx context.Context, unit string, user bool) (*Manager, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if user {
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	if unit == "" {
		unit = DefaultUnit
	}
	return &Manager{conn: conn, unit: unit}, nil
}

// Unit returns the managed unit name.
func (m *Manager) Unit() string { return m.unit }

// Status returns the unit's ActiveState, e.g. "active" or "inactive".
func (m *Manager) Status(ctx context.Context) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, m.unit, "ActiveState")
	if err != nil {
		return "", err
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return prop.Value.String(), nil
	}
	return state, nil
}

// Start starts the unit and waits for the job to finish.
func (m *Manager) Start(ctx context.Context) error {
	return m.runJob(ctx, "start", m.conn.StartUnitContext)
}

// Stop stops the unit and waits for the job to finish.
func (m *Manager) Stop(ctx context.Context) error {
	return m.runJob(ctx, "stop", m.conn.StopUnitContext)
}

// Restart restarts the unit and waits for the job to finish.
func (m *Manager) Restart(ctx context.Context) error {
	return m.runJob(ctx, "restart", m.conn.RestartUnitContext)
}

type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

func (m *Manager) runJob(ctx context.Context, op string, job jobFunc) error {
	done := make(chan string, 1)
	if _, err := job(ctx, m.unit, "replace", done); err != nil {
		return fmt.Errorf("%s %s: %w", op, m.unit, err)
	}
	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%s %s: job %s", op, m.unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

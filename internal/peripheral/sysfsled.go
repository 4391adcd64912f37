package peripheral

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var errOutputOnly = errors.New("kernel LEDs are output only")

// sysfsLED drives a kernel LED through /sys/class/leds, taking it away from
// its trigger while open and restoring the trigger on close.
type sysfsLED struct {
	name        string
	path        string
	prevTrigger string
	closed      bool
}

func openSysfsLED(name, path string) (*sysfsLED, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewError(ErrCodeNotFound, "open", name, KindGpioOut, err)
	}
	return &sysfsLED{name: name, path: path}, nil
}

func (l *sysfsLED) Name() string { return l.name }

func (l *sysfsLED) ConfigureInput() error {
	return errOutputOnly
}

func (l *sysfsLED) ConfigureOutput(initial bool) error {
	if l.closed {
		return errLineClosed
	}
	if trigger, err := l.currentTrigger(); err == nil {
		l.prevTrigger = trigger
	}
	// Manual control requires the "none" trigger.
	if err := os.WriteFile(filepath.Join(l.path, "trigger"), []byte("none"), 0o644); err != nil {
		return fmt.Errorf("failed to set LED trigger: %w", err)
	}
	return l.Write(initial)
}

func (l *sysfsLED) Read() (bool, error) {
	data, err := os.ReadFile(filepath.Join(l.path, "brightness"))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(data)) != "0", nil
}

func (l *sysfsLED) Write(level bool) error {
	if l.closed {
		return errLineClosed
	}
	value := "0"
	if level {
		value = "1"
	}
	if err := os.WriteFile(filepath.Join(l.path, "brightness"), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

func (l *sysfsLED) WaitForEdge(timeout time.Duration) bool {
	time.Sleep(timeout)
	return false
}

func (l *sysfsLED) Close() error {
	if l.closed {
		return nil
	}
	err := l.Write(false)
	l.closed = true
	if l.prevTrigger != "" && l.prevTrigger != "none" {
		if trigErr := os.WriteFile(filepath.Join(l.path, "trigger"), []byte(l.prevTrigger), 0o644); trigErr != nil {
			err = errors.Join(err, trigErr)
		}
	}
	return err
}

// currentTrigger parses the trigger file, where the active entry is bracketed:
// "none [heartbeat] default-on".
func (l *sysfsLED) currentTrigger() (string, error) {
	data, err := os.ReadFile(filepath.Join(l.path, "trigger"))
	if err != nil {
		return "", err
	}
	for _, field := range strings.Fields(string(data)) {
		if strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]") {
			return strings.Trim(field, "[]"), nil
		}
	}
	return "", errors.New("no active trigger")
}

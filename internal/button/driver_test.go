package button

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/smazurov/buttonhat/internal/peripheral"
	"github.com/smazurov/buttonhat/internal/peripheral/peripheraltest"
)

const testPoll = 5 * time.Millisecond

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRegistered(t *testing.T, mgr *peripheraltest.Manager, name string, key Key, opts ...Option) (*Driver, chan Event) {
	t.Helper()
	opts = append([]Option{WithPollInterval(testPoll)}, opts...)
	d := New(mgr, name, key, newTestLogger(), opts...)
	if err := d.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	events := make(chan Event, 16)
	if err := d.Register(func(e Event) { events <- e }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	t.Cleanup(func() {
		_ = d.Unregister()
		_ = d.Close()
	})
	return d, events
}

func expectEvents(t *testing.T, events chan Event, want ...Event) {
	t.Helper()
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Fatalf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d (%+v)", i, w)
		}
	}
}

func expectNoEvent(t *testing.T, events chan Event) {
	t.Helper()
	select {
	case got := <-events:
		t.Fatalf("unexpected event %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDriver_PressRelease(t *testing.T) {
	mgr := peripheraltest.NewManager()
	_, events := newRegistered(t, mgr, "GPIO21", KeyA)

	line := mgr.Line("GPIO21")
	if line.Mode() != "in" {
		t.Fatalf("line mode = %q, want in", line.Mode())
	}

	line.Press()
	line.Release()

	expectEvents(t, events,
		Event{Key: KeyA, Phase: PhaseDown},
		Event{Key: KeyA, Phase: PhaseUp},
	)
	expectNoEvent(t, events)
}

func TestDriver_NoDuplicateDown(t *testing.T) {
	mgr := peripheraltest.NewManager()
	_, events := newRegistered(t, mgr, "GPIO20", KeyB)

	line := mgr.Line("GPIO20")
	line.Press()
	line.Press()
	line.Press()
	line.Release()
	line.Release()

	expectEvents(t, events,
		Event{Key: KeyB, Phase: PhaseDown},
		Event{Key: KeyB, Phase: PhaseUp},
	)
	expectNoEvent(t, events)
}

func TestDriver_ReleaseWithoutPressIsSilent(t *testing.T) {
	mgr := peripheraltest.NewManager()
	_, events := newRegistered(t, mgr, "GPIO21", KeyA)

	// Key held before registration: the first edge seen is the release.
	mgr.Line("GPIO21").Release()
	expectNoEvent(t, events)
}

func TestDriver_ActiveHigh(t *testing.T) {
	mgr := peripheraltest.NewManager()
	_, events := newRegistered(t, mgr, "GPIO16", KeyA, WithActiveHigh())

	line := mgr.Line("GPIO16")
	line.Edge(true)
	line.Edge(false)

	expectEvents(t, events,
		Event{Key: KeyA, Phase: PhaseDown},
		Event{Key: KeyA, Phase: PhaseUp},
	)
}

func TestDriver_CloseWhileRegisteredIsDangling(t *testing.T) {
	mgr := peripheraltest.NewManager()
	d, _ := newRegistered(t, mgr, "GPIO21", KeyA)

	err := d.Close()
	if !errors.Is(err, peripheral.ErrDanglingResource) {
		t.Fatalf("Close() while registered = %v, want dangling resource", err)
	}
	if mgr.Line("GPIO21").Closed() {
		t.Error("line must stay open when Close is refused")
	}
	if !d.Registered() {
		t.Error("driver should still be registered")
	}
}

func TestDriver_UnregisterBeforeClose(t *testing.T) {
	mgr := peripheraltest.NewManager()
	d, _ := newRegistered(t, mgr, "GPIO21", KeyA)

	if err := d.Unregister(); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	line := mgr.Line("GPIO21")
	if !line.Closed() {
		t.Error("line should be closed")
	}
	if line.Dangling() {
		t.Error("line was closed while still being watched")
	}
	if d.Present() {
		t.Error("driver should report the line absent after Close")
	}

	// Closing again is harmless, unregistering after close is not.
	if err := d.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := d.Unregister(); !errors.Is(err, peripheral.ErrDanglingResource) {
		t.Errorf("Unregister() after Close() = %v, want dangling resource", err)
	}
}

func TestDriver_RegisterWithoutLine(t *testing.T) {
	mgr := peripheraltest.NewManager()
	mgr.FailOpen("GPIO21", errors.New("no such pin"))

	d := New(mgr, "GPIO21", KeyA, newTestLogger())
	if err := d.Open(); peripheral.CodeOf(err) != peripheral.ErrCodeOpenFailed {
		t.Fatalf("Open() code = %q, want %q", peripheral.CodeOf(err), peripheral.ErrCodeOpenFailed)
	}
	if err := d.Register(nil); !errors.Is(err, peripheral.ErrNotOpen) {
		t.Errorf("Register() without line = %v, want not open", err)
	}
	if err := d.Unregister(); err != nil {
		t.Errorf("Unregister() on never registered driver = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() on never opened driver = %v", err)
	}
}

func TestDriver_ConfigureFailure(t *testing.T) {
	mgr := peripheraltest.NewManager()
	line := mgr.Line("GPIO21")
	line.ConfigureErr = errors.New("pin busy")

	d := New(mgr, "GPIO21", KeyA, newTestLogger())
	if err := d.Open(); peripheral.CodeOf(err) != peripheral.ErrCodeConfigureFailed {
		t.Fatalf("Open() code = %q, want %q", peripheral.CodeOf(err), peripheral.ErrCodeConfigureFailed)
	}
	if !line.Closed() {
		t.Error("half-configured line should be closed")
	}
	if d.Present() {
		t.Error("driver should not expose a half-configured line")
	}
}

func TestDriver_ReadErrorSkipsEdge(t *testing.T) {
	mgr := peripheraltest.NewManager()
	line := mgr.Line("GPIO21")
	line.ReadErr = errors.New("eio")
	_, events := newRegistered(t, mgr, "GPIO21", KeyA)

	line.Press()
	expectNoEvent(t, events)
}

package router

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/buttonhat/internal/board"
	"github.com/smazurov/buttonhat/internal/button"
	"github.com/smazurov/buttonhat/internal/events"
	"github.com/smazurov/buttonhat/internal/peripheral"
	"github.com/smazurov/buttonhat/internal/peripheral/peripheraltest"
	"github.com/smazurov/buttonhat/internal/uart"
)

type harness struct {
	mgr    *peripheraltest.Manager
	router *Router
	keys   chan button.Event
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newHarness(t *testing.T, arm func(mgr *peripheraltest.Manager), mutate func(opts *Options)) *harness {
	t.Helper()
	mgr := peripheraltest.NewManager()
	mgr.UartDevices = []string{"/dev/ttyAMA0", "/dev/ttyS0"}
	if arm != nil {
		arm(mgr)
	}

	h := &harness{mgr: mgr, keys: make(chan button.Event, 16)}
	opts := &Options{
		Manager:         mgr,
		Bindings:        board.RainbowHAT,
		Sink:            func(e button.Event) { h.keys <- e },
		Logger:          newTestLogger(),
		ButtonOptions:   []button.Option{button.WithPollInterval(5 * time.Millisecond)},
		DiagnosticTable: true,
	}
	if mutate != nil {
		mutate(opts)
	}
	h.router = New(opts)
	t.Cleanup(h.router.OnDestroy)
	return h
}

// dispatch waits for the next key event from the drivers and hands it to the
// router on the test goroutine, as the lifecycle host does.
func (h *harness) dispatch(t *testing.T) (button.Event, bool) {
	t.Helper()
	select {
	case e := <-h.keys:
		if e.Phase == button.PhaseDown {
			return e, h.router.OnKeyDown(e.Key)
		}
		return e, h.router.OnKeyUp(e.Key)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for key event")
		return button.Event{}, false
	}
}

func TestRouter_CreateOrder(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()

	want := []string{
		"open UART0",
		"configure UART0 9600-8-none-1",
		"open GPIO6",
		"configure-out GPIO6 false",
		"open GPIO19",
		"configure-out GPIO19 false",
		"open GPIO21",
		"configure-in GPIO21",
		"open GPIO20",
		"configure-in GPIO20",
		"open 1",
		"enable 1 true",
		"clear 1",
	}
	if got := h.mgr.Journal(); !reflect.DeepEqual(got, want) {
		t.Errorf("journal =\n%q\nwant\n%q", got, want)
	}
	if h.router.State() != StateReady {
		t.Errorf("State() = %s, want %s", h.router.State(), StateReady)
	}
	for _, p := range h.router.Peripherals() {
		if !p.Present {
			t.Errorf("peripheral %s (%s) not present", p.Role, p.Name)
		}
	}
}

func TestRouter_CreateTwiceIgnored(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()
	n := len(h.mgr.Journal())

	h.router.OnCreate()

	if got := len(h.mgr.Journal()); got != n {
		t.Errorf("second OnCreate touched hardware: %d journal entries, want %d", got, n)
	}
}

func TestRouter_PressAndRelease(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()
	red := h.mgr.Line("GPIO6")

	h.mgr.Line("GPIO21").Press()
	e, handled := h.dispatch(t)
	if e != (button.Event{Key: button.KeyA, Phase: button.PhaseDown}) || !handled {
		t.Fatalf("dispatch = %+v handled=%v, want A down handled", e, handled)
	}
	if on, _ := h.router.LEDValue(button.KeyA); !on {
		t.Error("red LED should be on after A down")
	}

	h.mgr.Line("GPIO21").Release()
	e, handled = h.dispatch(t)
	if e.Phase != button.PhaseUp || !handled {
		t.Fatalf("dispatch = %+v handled=%v, want A up handled", e, handled)
	}
	if on, _ := h.router.LEDValue(button.KeyA); on {
		t.Error("red LED should be off after A up")
	}

	if got, want := red.Writes(), []bool{true, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("red writes = %v, want %v", got, want)
	}
	if got := h.mgr.Line("GPIO19").Writes(); len(got) != 0 {
		t.Errorf("green LED written on key A: %v", got)
	}
}

func TestRouter_KeyDownIdempotent(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()

	if !h.router.OnKeyDown(button.KeyA) || !h.router.OnKeyDown(button.KeyA) {
		t.Fatal("OnKeyDown(A) should be handled both times")
	}
	if on, _ := h.router.LEDValue(button.KeyA); !on {
		t.Error("red LED should stay on")
	}
	if got, want := h.mgr.Line("GPIO6").Writes(), []bool{true, true}; !reflect.DeepEqual(got, want) {
		t.Errorf("red writes = %v, want %v", got, want)
	}
}

func TestRouter_ScenarioAB(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()
	disp := h.mgr.Display("1")
	serial := h.mgr.Uart("UART0")

	h.router.OnKeyDown(button.KeyA)
	if disp.Text() != "LedA" {
		t.Errorf("display = %q after A down, want LedA", disp.Text())
	}
	if len(serial.Writes()) != 0 {
		t.Error("key A must not write to the UART")
	}
	h.router.OnKeyUp(button.KeyA)

	h.router.OnKeyDown(button.KeyB)
	if disp.Text() != "LedB" {
		t.Errorf("display = %q after B down, want LedB", disp.Text())
	}
	writes := serial.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], uart.DiagnosticTable()) {
		t.Errorf("UART writes = %q, want one diagnostic table", writes)
	}
	if on, _ := h.router.LEDValue(button.KeyB); !on {
		t.Error("green LED should be on after B down")
	}
	h.router.OnKeyUp(button.KeyB)

	// Open clears once, then every key down clears before showing its label.
	want := []string{"", "", "LedA", "", "LedB"}
	if got := disp.History(); !reflect.DeepEqual(got, want) {
		t.Errorf("display history = %q, want %q", got, want)
	}
}

func TestRouter_DiagnosticTableDisabled(t *testing.T) {
	h := newHarness(t, nil, func(opts *Options) { opts.DiagnosticTable = false })
	h.router.OnCreate()

	h.router.OnKeyDown(button.KeyB)

	if got := h.mgr.Uart("UART0").Writes(); len(got) != 0 {
		t.Errorf("UART writes = %q, want none", got)
	}
}

func TestRouter_UnknownKey(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()

	if h.router.OnKeyDown(button.Key("C")) {
		t.Error("OnKeyDown(C) should not be handled")
	}
	if h.router.OnKeyUp(button.Key("C")) {
		t.Error("OnKeyUp(C) should not be handled")
	}
	if len(h.mgr.Line("GPIO6").Writes())+len(h.mgr.Line("GPIO19").Writes()) != 0 {
		t.Error("unknown key must not touch any LED")
	}
}

func TestRouter_KeysOutsideReady(t *testing.T) {
	h := newHarness(t, nil, nil)

	if h.router.OnKeyDown(button.KeyA) {
		t.Error("key handled before OnCreate")
	}

	h.router.OnCreate()
	h.router.OnDestroy()

	if h.router.OnKeyUp(button.KeyA) {
		t.Error("key handled after OnDestroy")
	}
	if got := h.mgr.Line("GPIO6").Writes(); len(got) != 0 {
		t.Errorf("red writes = %v, want none", got)
	}
}

func TestRouter_WriteFailure(t *testing.T) {
	h := newHarness(t, func(mgr *peripheraltest.Manager) {
		mgr.Line("GPIO6").WriteErr = errors.New("bus fault")
	}, nil)
	h.router.OnCreate()

	if h.router.OnKeyDown(button.KeyA) {
		t.Error("OnKeyDown(A) handled despite write failure")
	}
	if on, _ := h.router.LEDValue(button.KeyA); on {
		t.Error("value changed despite write failure")
	}
	if !h.router.OnKeyDown(button.KeyB) {
		t.Error("key B should be unaffected by the red LED failure")
	}
}

func TestRouter_PartialInit(t *testing.T) {
	h := newHarness(t, func(mgr *peripheraltest.Manager) {
		mgr.FailOpen("1", errors.New("no i2c bus"))
		mgr.FailOpen("UART0", errors.New("no such device"))
	}, nil)
	h.router.OnCreate()

	if h.router.State() != StateReady {
		t.Fatalf("State() = %s, want %s", h.router.State(), StateReady)
	}

	present := make(map[string]bool)
	for _, p := range h.router.Peripherals() {
		present[p.Role] = p.Present
	}
	want := map[string]bool{
		"uart": false, "display": false,
		"led_red": true, "led_green": true, "button_A": true, "button_B": true,
	}
	if !reflect.DeepEqual(present, want) {
		t.Errorf("presence = %v, want %v", present, want)
	}

	if !h.router.OnKeyDown(button.KeyB) {
		t.Error("OnKeyDown(B) should still drive the LED without display or UART")
	}
}

func TestRouter_DisplayFailureOnly(t *testing.T) {
	h := newHarness(t, func(mgr *peripheraltest.Manager) {
		mgr.FailOpen("1", errors.New("no i2c bus"))
	}, nil)
	h.router.OnCreate()

	var got []button.Event
	for _, line := range []string{"GPIO21", "GPIO20"} {
		h.mgr.Line(line).Press()
		h.mgr.Line(line).Release()
		for i := 0; i < 2; i++ {
			e, handled := h.dispatch(t)
			if !handled {
				t.Errorf("%s %s not handled without a display", e.Key, e.Phase)
			}
			got = append(got, e)
		}
	}
	want := []button.Event{
		{Key: button.KeyA, Phase: button.PhaseDown},
		{Key: button.KeyA, Phase: button.PhaseUp},
		{Key: button.KeyB, Phase: button.PhaseDown},
		{Key: button.KeyB, Phase: button.PhaseUp},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %+v, want %+v", got, want)
	}

	for _, name := range []string{"GPIO6", "GPIO19"} {
		if w := h.mgr.Line(name).Writes(); !reflect.DeepEqual(w, []bool{true, false}) {
			t.Errorf("%s writes = %v, want [true false]", name, w)
		}
	}
}

func TestRouter_LogsUartMode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := newHarness(t, nil, func(opts *Options) { opts.Logger = logger })
	h.router.OnCreate()

	out := buf.String()
	if !strings.Contains(out, `mode="9600 8N1"`) {
		t.Errorf("log should carry the applied UART mode:\n%s", out)
	}
	if strings.Contains(out, `uart=""`) {
		t.Errorf("log carries an empty UART name:\n%s", out)
	}
}

func TestRouter_UnknownKeyAndShutdownEvents(t *testing.T) {
	bus := events.New()
	var (
		mu   sync.Mutex
		keys []events.KeyDispatchedEvent
		leds []events.LEDChangedEvent
	)
	unsubKey := bus.Subscribe(func(e events.KeyDispatchedEvent) {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, e)
	})
	defer unsubKey()
	unsubLED := bus.Subscribe(func(e events.LEDChangedEvent) {
		mu.Lock()
		defer mu.Unlock()
		leds = append(leds, e)
	})
	defer unsubLED()

	h := newHarness(t, nil, func(opts *Options) { opts.EventBus = bus })
	h.router.OnCreate()
	h.router.OnKeyDown(button.KeyA)
	h.router.OnKeyDown(button.Key("C"))
	h.router.OnDestroy()

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		got := len(keys) >= 2 && len(leds) >= 3
		mu.Unlock()
		if got || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 || keys[1].Key != "C" || keys[1].Handled {
		t.Errorf("key events = %+v, want an unhandled C after A", keys)
	}
	wantLEDs := []events.LEDChangedEvent{
		{LED: "GPIO6", On: true},
		{LED: "GPIO6", On: false},
		{LED: "GPIO19", On: false},
	}
	for i := range leds {
		leds[i].Timestamp = ""
	}
	if !reflect.DeepEqual(leds, wantLEDs) {
		t.Errorf("LED events = %+v, want %+v", leds, wantLEDs)
	}
}

func TestRouter_ButtonConfigureFailure(t *testing.T) {
	h := newHarness(t, func(mgr *peripheraltest.Manager) {
		mgr.Line("GPIO20").ConfigureErr = errors.New("pin busy")
	}, nil)
	h.router.OnCreate()

	line := h.mgr.Line("GPIO20")
	if !line.Closed() {
		t.Error("misconfigured input line should have been released")
	}

	h.mgr.Line("GPIO21").Press()
	if _, handled := h.dispatch(t); !handled {
		t.Error("key A should work when only key B failed")
	}
}

func TestRouter_DestroyOrder(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()
	start := len(h.mgr.Journal())

	h.router.OnDestroy()

	want := []string{
		"close GPIO21",
		"close GPIO20",
		"close GPIO6",
		"close GPIO19",
		"close 1",
		"close UART0",
	}
	if got := h.mgr.Journal()[start:]; !reflect.DeepEqual(got, want) {
		t.Errorf("teardown journal = %q, want %q", got, want)
	}
	for _, name := range []string{"GPIO21", "GPIO20"} {
		if h.mgr.Line(name).Dangling() {
			t.Errorf("%s closed while still watched", name)
		}
	}
	if h.router.State() != StateClosed {
		t.Errorf("State() = %s, want %s", h.router.State(), StateClosed)
	}
	for _, p := range h.router.Peripherals() {
		if p.Present {
			t.Errorf("peripheral %s still present after OnDestroy", p.Role)
		}
	}
}

func TestRouter_DestroyTwice(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.router.OnCreate()
	h.router.OnDestroy()
	n := len(h.mgr.Journal())

	h.router.OnDestroy()

	if got := len(h.mgr.Journal()); got != n {
		t.Errorf("second OnDestroy touched hardware: %d journal entries, want %d", got, n)
	}
}

func TestRouter_DestroyContinuesAfterCloseError(t *testing.T) {
	h := newHarness(t, func(mgr *peripheraltest.Manager) {
		mgr.Line("GPIO6").CloseErr = errors.New("stuck")
		mgr.Display("1").CloseErr = errors.New("nack")
	}, nil)
	h.router.OnCreate()

	h.router.OnDestroy()

	if !h.mgr.Line("GPIO19").Closed() || !h.mgr.Uart("UART0").Closed() {
		t.Error("later closes must still be attempted after a failure")
	}
	if h.router.State() != StateClosed {
		t.Errorf("State() = %s, want %s", h.router.State(), StateClosed)
	}
}

func TestRouter_DestroyWithoutCreate(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.router.OnDestroy()

	if got := h.mgr.Journal(); len(got) != 0 {
		t.Errorf("journal = %q, want empty", got)
	}
	if h.router.State() != StateClosed {
		t.Errorf("State() = %s, want %s", h.router.State(), StateClosed)
	}
}

func TestRouter_PublishesEvents(t *testing.T) {
	bus := events.New()
	var (
		mu      sync.Mutex
		keys    []events.KeyDispatchedEvent
		faults  []events.PeripheralErrorEvent
		changes []string
	)
	done := make(chan struct{})
	unsubKey := bus.Subscribe(func(e events.KeyDispatchedEvent) {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, e)
	})
	defer unsubKey()
	unsubErr := bus.Subscribe(func(e events.PeripheralErrorEvent) {
		mu.Lock()
		defer mu.Unlock()
		faults = append(faults, e)
	})
	defer unsubErr()
	unsubState := bus.Subscribe(func(e events.RouterStateChangedEvent) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, e.To)
		if e.To == string(StateReady) {
			close(done)
		}
	})
	defer unsubState()

	h := newHarness(t, func(mgr *peripheraltest.Manager) {
		mgr.FailOpen("UART0", peripheral.ErrNotFound)
	}, func(opts *Options) { opts.EventBus = bus })
	h.router.OnCreate()
	h.router.OnKeyDown(button.KeyA)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ready state event")
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		got := len(keys) > 0 && len(faults) > 0
		mu.Unlock()
		if got || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if want := []string{string(StateInitializing), string(StateReady)}; !reflect.DeepEqual(changes, want) {
		t.Errorf("state changes = %v, want %v", changes, want)
	}
	if len(keys) != 1 || keys[0].Key != "A" || !keys[0].Handled || keys[0].LED != "GPIO6" {
		t.Errorf("key events = %+v, want one handled A on GPIO6", keys)
	}
	if len(faults) != 1 || faults[0].Name != "UART0" || faults[0].Code != peripheral.ErrCodeOpenFailed {
		t.Errorf("peripheral errors = %+v, want UART0 %s", faults, peripheral.ErrCodeOpenFailed)
	}
}

package metrics

import (
	"github.com/smazurov/buttonhat/internal/events"
)

// Subscribe keeps the router metrics current from bus events. The returned
// function unsubscribes.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.KeyDispatchedEvent) {
			RecordKeyEvent(e.Key, e.Phase, e.Handled)
		}),
		bus.Subscribe(func(e events.LEDChangedEvent) {
			SetLED(e.LED, e.On)
		}),
		bus.Subscribe(func(e events.PeripheralErrorEvent) {
			RecordPeripheralError(e.Kind, e.Code)
		}),
		bus.Subscribe(func(e events.RouterStateChangedEvent) {
			SetRouterState(e.To)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// Package metrics provides Prometheus metrics for the event router.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	keyEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttonhat",
		Subsystem: "router",
		Name:      "key_events_total",
		Help:      "Key events dispatched to the router",
	}, []string{"key", "phase", "handled"})

	peripheralErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttonhat",
		Subsystem: "router",
		Name:      "peripheral_errors_total",
		Help:      "Peripheral failures reported by the router",
	}, []string{"kind", "code"})

	routerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buttonhat",
		Subsystem: "router",
		Name:      "state",
		Help:      "Current router lifecycle state (1 for the active state)",
	}, []string{"state"})

	ledOn = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buttonhat",
		Subsystem: "led",
		Name:      "on",
		Help:      "Last value successfully written to the LED",
	}, []string{"led"})
)

// RecordKeyEvent counts one dispatched key event.
func RecordKeyEvent(key, phase string, handled bool) {
	keyEvents.WithLabelValues(key, phase, strconv.FormatBool(handled)).Inc()
}

// RecordPeripheralError counts one peripheral failure.
func RecordPeripheralError(kind, code string) {
	if kind == "" {
		kind = "unknown"
	}
	if code == "" {
		code = "unknown"
	}
	peripheralErrors.WithLabelValues(kind, code).Inc()
}

// SetRouterState marks state as the active router state.
func SetRouterState(state string) {
	routerState.Reset()
	routerState.WithLabelValues(state).Set(1)
}

// SetLED records the LED value.
func SetLED(led string, on bool) {
	v := 0.0
	if on {
		v = 1
	}
	ledOn.WithLabelValues(led).Set(v)
}

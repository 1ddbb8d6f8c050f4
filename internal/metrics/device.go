// Package metrics provides Prometheus metrics for device requests and pin state.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pinnode"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Device port requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Time spent handling one device port request",
		Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	indicatorOn = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indicator_on",
		Help:      "Builtin indicator state (1 = on)",
	})

	pinLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pin_level",
		Help:      "Last level driven on a digital pin (1 = high)",
	}, []string{"pin"})

	pwmDuty = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pwm_duty_percent",
		Help:      "Last PWM duty applied to a pin",
	}, []string{"pin"})

	joystickCenter = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "joystick_center",
		Help:      "Calibrated joystick center per axis",
	}, []string{"axis"})

	calibrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calibrations_total",
		Help:      "Successful joystick calibrations",
	})

	adminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_requests_total",
		Help:      "Admin API requests by operation and status",
	}, []string{"operation", "status"})

	logEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_entries_total",
		Help:      "Log entries written by level",
	}, []string{"level"})
)

// ObserveRequest records one handled device request.
func ObserveRequest(route string, status int, seconds float64) {
	requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	requestDuration.Observe(seconds)
}

// ObserveAdminRequest counts one admin API call.
func ObserveAdminRequest(operation string, status int) {
	adminRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

// SetIndicator records the builtin indicator state.
func SetIndicator(on bool) {
	indicatorOn.Set(boolToFloat(on))
}

// SetPinLevel records the level driven on a digital pin.
func SetPinLevel(pin int, high bool) {
	pinLevel.WithLabelValues(strconv.Itoa(pin)).Set(boolToFloat(high))
}

// SetPWMDuty records the duty applied to a pin. A stopped output reads 0.
func SetPWMDuty(pin, pct int) {
	pwmDuty.WithLabelValues(strconv.Itoa(pin)).Set(float64(pct))
}

// SetJoystickCenter records a new calibration and counts it.
func SetJoystickCenter(x, y int) {
	joystickCenter.WithLabelValues("x").Set(float64(x))
	joystickCenter.WithLabelValues("y").Set(float64(y))
	calibrationsTotal.Inc()
}

// CountLogEntry counts a log entry at the given level.
func CountLogEntry(level string) {
	logEntriesTotal.WithLabelValues(level).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

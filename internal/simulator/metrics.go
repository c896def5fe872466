package simulator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botfleet_simulator_actions_total",
	Help: "Number of simulated bot actions, by bot type and activity type",
}, []string{"bot_type", "activity"})

var actionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botfleet_simulator_actions_dropped_total",
	Help: "Number of actions dropped by the hourly cap",
}, []string{"bot_type"})

var tickErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botfleet_simulator_tick_errors_total",
	Help: "Number of bot ticks that failed",
})

var enrolledBots = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "botfleet_simulator_enrolled_bots",
	Help: "Number of bots with scheduled ticks",
})

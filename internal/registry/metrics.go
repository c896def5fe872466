package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var botsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botfleet_bots_created_total",
	Help: "Number of bots created, by bot type",
}, []string{"bot_type"})

var quotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botfleet_bot_quota_rejections_total",
	Help: "Number of bot creations denied by plan limits",
}, []string{"plan"})

package obs

import "github.com/prometheus/client_golang/prometheus"

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata, value is always 1.",
	},
	[]string{"version"},
)

// SetBuildInfo publishes the running version as a labeled gauge.
func SetBuildInfo(version string) {
	prometheus.MustRegister(buildInfo)
	buildInfo.WithLabelValues(version).Set(1)
}

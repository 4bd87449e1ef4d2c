// Package metrics holds the prometheus registry every tsmacro collector
// registers with.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is separate from the prometheus default so embedding programs
// choose whether to expose it.
var Registry = prometheus.NewRegistry()

// Handler serves Registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

package generation

import "github.com/prometheus/client_golang/prometheus"

var (
	generationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyforge_generation_total",
			Help: "Pipeline runs by content kind and outcome (model, topped_up, fallback).",
		},
		[]string{"kind", "outcome"},
	)
	fallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyforge_generation_fallback_total",
			Help: "Fallback activations by content kind and reason.",
		},
		[]string{"kind", "reason"},
	)
)

func init() {
	prometheus.MustRegister(generationTotal, fallbackTotal)
}

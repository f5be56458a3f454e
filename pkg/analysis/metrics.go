package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	newtonIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soisim_newton_iterations_total",
		Help: "Newton iterations by analysis",
	}, []string{"analysis"})

	limitedIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soisim_limited_iterations_total",
		Help: "Newton iterations in which a device limited its bias",
	}, []string{"analysis"})

	newtonFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soisim_newton_failures_total",
		Help: "Newton solves that ran out of iterations",
	}, []string{"analysis"})

	gminSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soisim_gmin_steps_total",
		Help: "Gmin stepping solves in operating point analysis",
	})

	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soisim_linear_solve_seconds",
		Help:    "Time to factor and solve the Newton system",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10us to ~300ms
	})
)

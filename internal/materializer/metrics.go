package materializer

import "github.com/prometheus/client_golang/prometheus"

var (
	insertedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lifeplan",
		Subsystem: "materializer",
		Name:      "instances_inserted_total",
		Help:      "Number of instances written by materialization.",
	})

	conflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lifeplan",
		Subsystem: "materializer",
		Name:      "instance_conflicts_total",
		Help:      "Number of staged instances absorbed because a concurrent call inserted them first.",
	})

	unknownRuleCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeplan",
		Subsystem: "materializer",
		Name:      "unknown_rules_total",
		Help:      "Number of rules skipped because their recurrence could not be evaluated, labeled by rule type.",
	}, []string{"type"})

	failureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeplan",
		Subsystem: "materializer",
		Name:      "failures_total",
		Help:      "Number of materialization calls that failed, labeled by stage.",
	}, []string{"stage"})

	ensureDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lifeplan",
		Subsystem: "materializer",
		Name:      "ensure_duration_seconds",
		Help:      "Time spent reading, diffing, and inserting instances for a range.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(insertedCounter, conflictCounter, unknownRuleCounter, failureCounter, ensureDuration)
}

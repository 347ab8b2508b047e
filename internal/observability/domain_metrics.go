package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	guardrailRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryguard_guardrail_rejections_total",
			Help: "Total number of queries rejected before execution, by reason.",
		},
		[]string{"reason"},
	)
	previewsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryguard_previews_created_total",
			Help: "Total number of pending previews created.",
		},
	)
	previewsConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryguard_previews_confirmed_total",
			Help: "Total number of previews confirmed and executed.",
		},
	)
	previewsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryguard_previews_expired_total",
			Help: "Total number of previews evicted by the TTL sweep.",
		},
	)
	queriesExecutedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryguard_queries_executed_total",
			Help: "Total number of queries that reached the data store.",
		},
	)
	auditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryguard_audit_write_failures_total",
			Help: "Total number of swallowed audit log write failures.",
		},
	)
	explanationFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryguard_explanation_fallbacks_total",
			Help: "Total number of explanations served by the local heuristic after a provider failure.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		guardrailRejectionsTotal,
		previewsCreatedTotal,
		previewsConfirmedTotal,
		previewsExpiredTotal,
		queriesExecutedTotal,
		auditWriteFailuresTotal,
		explanationFallbacksTotal,
	)
}

func ObserveGuardrailRejection(reason string) {
	guardrailRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObservePreviewCreated() {
	previewsCreatedTotal.Inc()
}

func ObservePreviewConfirmed() {
	previewsConfirmedTotal.Inc()
}

func ObservePreviewsExpired(count int) {
	if count > 0 {
		previewsExpiredTotal.Add(float64(count))
	}
}

func ObserveQueryExecuted() {
	queriesExecutedTotal.Inc()
}

func ObserveAuditWriteFailure() {
	auditWriteFailuresTotal.Inc()
}

func ObserveExplanationFallback() {
	explanationFallbacksTotal.Inc()
}

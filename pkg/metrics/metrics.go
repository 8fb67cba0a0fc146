package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events accepted by the publisher (count)",
		},
		[]string{"event_type", "status"},
	)

	EventsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dispatched_total",
			Help: "Total number of processor deliveries attempted by the dispatcher (count)",
		},
		[]string{"processor", "status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_ms",
			Help:    "Duration of a single processor delivery in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"processor", "status"},
	)

	DuplicateSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_skips_total",
			Help: "Total number of deliveries skipped because the ledger key was already claimed or complete (count)",
		},
		[]string{"processor"},
	)

	LedgerClaimDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_claim_duration_ms",
			Help:    "Duration of idempotency ledger claim attempts in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	DeadLettersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letters_total",
			Help: "Total number of dead-letter entries written (count)",
		},
		[]string{"processor", "reason"},
	)

	ReplayEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_events_total",
			Help: "Total number of events re-driven through the dispatcher by replay (count)",
		},
		[]string{"status"},
	)

	ReplayRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_runs_total",
			Help: "Total number of replay runs started (count)",
		},
		[]string{"mode"},
	)

	ProjectionWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projection_writes_total",
			Help: "Total number of search projection writes (count)",
		},
		[]string{"collection", "status"},
	)

	NotificationsRequestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_requested_total",
			Help: "Total number of chained notification events emitted (count)",
		},
		[]string{"source_type"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to the broker DLQ topic (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(EventsPublishedTotal)
	prometheus.MustRegister(EventsDispatchedTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(DuplicateSkipsTotal)
	prometheus.MustRegister(LedgerClaimDuration)
	prometheus.MustRegister(DeadLettersTotal)
	prometheus.MustRegister(ProjectionWritesTotal)
	prometheus.MustRegister(NotificationsRequestedTotal)
}

func RegisterReplayMetrics() {
	prometheus.MustRegister(ReplayEventsTotal)
	prometheus.MustRegister(ReplayRunsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
	prometheus.MustRegister(KafkaConsumerLag)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAdminMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func ObserveDispatchDuration(processor, status string, duration time.Duration) {
	DispatchDuration.WithLabelValues(processor, status).Observe(float64(duration.Milliseconds()))
}

func ObserveLedgerClaimDuration(status string, duration time.Duration) {
	LedgerClaimDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixLedger = "ledger:"
	CacheKeyPrefixReplay = "replay:cursor:"
)

const (
	DefaultEventTopic        = "domain_events"
	DefaultNotificationTopic = "notification_requests"
	DefaultDLQTopic          = "domain_events_dlq"
)

const (
	DefaultMongoDBName = "fundline"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultTTLSeconds = 3600
)

const (
	DefaultProcessTimeout = 30 * time.Second
	DefaultStaleClaimAge  = 5 * time.Minute
)

const (
	DefaultReplayBatchSize = 500
)

const (
	ProcessorDonation     = "donation"
	ProcessorCampaign     = "campaign"
	ProcessorUpdate       = "update"
	ProcessorSearchIndex  = "search_index"
	ProcessorAudit        = "audit"
	ProcessorNotification = "notification"
)

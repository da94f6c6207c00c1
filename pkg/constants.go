package shared

const (
	ProjectID = "carbonpath-project" // Can be overridden by env var in main if needed

	TopicPipelineTrigger = "topic-pipeline-trigger" // Cloud Scheduler entry point
	TopicRunSummary      = "topic-run-summary"

	CollectionUsers            = "users"
	CollectionTransports       = "transports"
	CollectionNoTransportDates = "no_transport_dates"
)

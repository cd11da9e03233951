package kafka

// Topics консоли.
const (
	TopicConsoleEvents   = "crm.console.events"
	TopicDeadLetterQueue = "crm.console.dlq"
)

// Заголовки сообщений.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
	HeaderReplayedFrom  = "x-replayed-from"
)

package messaging

// Subject names follow the pattern {domain}.{resource}.{action}.
const (
	// SubjectObjectsCreated carries storage-change events for new objects.
	SubjectObjectsCreated = "storage.objects.created"

	// SubjectOutcomesRecorded is published after each moderation
	// invocation completes, for downstream consumers.
	SubjectOutcomesRecorded = "moderation.outcomes.recorded"
)

// JetStream names for the moderation worker pool.
const (
	// StreamStorageEvents is the durable stream capturing object events.
	StreamStorageEvents = "STORAGE_EVENTS"

	// ConsumerModerator is the durable consumer used by this service.
	ConsumerModerator = "imgwarden-moderator"
)

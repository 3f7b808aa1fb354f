package events

// Topic constants for domain events emitted by the platform.
const (
	TopicDraftCreated        = "draft.created"
	TopicDraftSettled        = "draft.settled"
	TopicSettlementSubmitted = "settlement.submitted"
	TopicSettlementFailed    = "settlement.failed"
	TopicReturnQuoted        = "return.quoted"
	TopicReturnSubmitted     = "return.submitted"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicDraftCreated,
		TopicDraftSettled,
		TopicSettlementSubmitted,
		TopicSettlementFailed,
		TopicReturnQuoted,
		TopicReturnSubmitted,
	}
}

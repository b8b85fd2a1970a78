package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	DefaultSessionTitle = "Unnamed session"

	// Event codes forwarded to the audit bus.
	EventChatTurnCompleted = "CHAT_TURN_COMPLETED"
	EventChatInterrupted   = "CHAT_INTERRUPTED"
	EventChatResumed       = "CHAT_RESUMED"
)

// Package role defines the sender roles of chat-completion messages.
package role

// Role is the "role" field of one message.
type Role string

// Roles sent by the chat-completion adapter. Replies come back as the
// assistant role, which is never sent.
const (
	System Role = "system"
	User   Role = "user"
)

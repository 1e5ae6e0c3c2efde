package models

// ChatRole represents the role of a chat message sender.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ValidChatRoles contains all valid chat role values.
var ValidChatRoles = []ChatRole{
	ChatRoleUser,
	ChatRoleAssistant,
}

// IsValidChatRole checks if the given role is valid.
func IsValidChatRole(r ChatRole) bool {
	for _, v := range ValidChatRoles {
		if v == r {
			return true
		}
	}
	return false
}

// ChatMessage is one entry of the assistant transcript.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

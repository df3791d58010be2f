package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	EventTypeTreeCreate          EventType = "tree.create"
	EventTypeTreeUpdate          EventType = "tree.update"
	EventTypeTreeDelete          EventType = "tree.delete"
	EventTypeTreeTokenRotate     EventType = "tree.token_rotate"
	EventTypeTreeCollaboratorAdd EventType = "tree.collaborator_add"
	EventTypeTreeCollaboratorRm  EventType = "tree.collaborator_remove"

	EventTypeWishDelete EventType = "wish.delete"

	EventTypeInviteCodeMint    EventType = "invite_code.mint"
	EventTypeInviteCodeConsume EventType = "invite_code.consume"

	EventTypeAccessDenied EventType = "authz.access_denied"
)

// Event is one audit trail entry. ActorID is empty for anonymous callers
// (possible only on access-denied events).
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	ActorID      string            `json:"actor_id,omitempty"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Detail       map[string]string `json:"detail,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Resource types used in events
const (
	ResourceTree       = "tree"
	ResourceWish       = "wish"
	ResourceInviteCode = "invite_code"
)

package chat

import (
	"context"

	"AProject/module/activity/model"
)

// Gateway is the storage collaborator the protocol layer depends on.
// Access checks are evaluated fresh per call; the protocol layer never
// caches the result beyond the operation that asked.
type Gateway interface {
	CanUserAccessChat(ctx context.Context, userID, activityID int64) (bool, error)
	CreateMessage(ctx context.Context, activityID, senderID int64, content string) (*model.Message, error)
	RecentMessages(ctx context.Context, activityID int64, limit int64) ([]*model.ChatMessage, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
}

// PresenceTracker marks best-effort online state. Implementations must be
// safe to call with a dead backend; errors are logged and ignored.
type PresenceTracker interface {
	MarkOnline(ctx context.Context, userID int64, connID string) error
	Touch(ctx context.Context, userID int64) error
	MarkOffline(ctx context.Context, userID int64, connID string) error
}

// Handler processes one inbound frame kind.
type Handler interface {
	Type() FrameType
	Handle(ctx context.Context, f *Frame, c *Client) error
}

package chat

import (
	"context"

	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/session"
)

// API is the slice of the backend client the messaging stores consume.
// *api.Client satisfies it; tests substitute fakes.
type API interface {
	Conversations(ctx context.Context) ([]api.Conversation, error)
	Groups(ctx context.Context) ([]api.Group, error)
	Conversation(ctx context.Context, user1, user2 int64, page int) (api.ListPage[api.Message], error)
	GroupMessages(ctx context.Context, groupID int64, page int) (api.ListPage[api.Message], error)
	SendMessage(ctx context.Context, receiverID int64, content string, courseID int64) (api.Message, error)
	SendGroupMessage(ctx context.Context, groupID int64, content string) (api.Message, error)
	MarkMessageRead(ctx context.Context, messageID int64) error
	SetTyping(ctx context.Context, receiverID int64, isTyping bool) error
	TypingStatus(ctx context.Context, peerID int64) (api.TypingStatus, error)
	Contacts(ctx context.Context) ([]api.User, error)
}

// Session exposes the current credential and locally decoded identity.
// Implementations must read fresh state on every call, never memoize.
type Session interface {
	Token() (string, bool)
	Identity() (session.Identity, bool)
}

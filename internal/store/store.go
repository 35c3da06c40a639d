// Package store defines the narrow contracts of the collaborators the
// request/response layer talks to: the chat/message document store, the
// identity verifier, and the file store. The signaling core never touches
// any of these.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vkuzmin/chatrelay/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownToken = errors.New("unknown token")
)

type Chat struct {
	ID        string        `json:"_id"`
	Name      string        `json:"name,omitempty"`
	IsGroup   bool          `json:"isGroupChat"`
	Users     []domain.User `json:"users"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Message struct {
	ID        string      `json:"_id"`
	ChatID    string      `json:"chatId"`
	Sender    domain.User `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ChatStore is the document store surface the REST layer consumes.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *Chat) error
	FindChat(ctx context.Context, id string) (*Chat, error)
	ChatsForUser(ctx context.Context, user domain.UserID) ([]*Chat, error)
	AppendMessage(ctx context.Context, msg *Message) error
	MessagesForChat(ctx context.Context, chatID string, limit int) ([]*Message, error)
}

// IdentityProvider resolves a bearer token into the user it belongs to.
// It runs before any request reaches the relay surfaces.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (domain.User, error)
}

// FileStore persists an uploaded blob and returns a URL it can be fetched at.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

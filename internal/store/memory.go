package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vkuzmin/chatrelay/internal/domain"
)

// MemoryChatStore is a mutex-guarded in-memory ChatStore. It backs local
// development and the tests; a deployment swaps in a real document store
// behind the same interface.
type MemoryChatStore struct {
	mu       sync.RWMutex
	chats    map[string]*Chat
	messages map[string][]*Message
	now      func() time.Time
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		chats:    make(map[string]*Chat),
		messages: make(map[string][]*Message),
		now:      time.Now,
	}
}

func (s *MemoryChatStore) CreateChat(_ context.Context, chat *Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	chat.CreatedAt = s.now()
	cp := *chat
	s.chats[chat.ID] = &cp
	return nil
}

func (s *MemoryChatStore) FindChat(_ context.Context, id string) (*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *chat
	return &cp, nil
}

func (s *MemoryChatStore) ChatsForUser(_ context.Context, user domain.UserID) ([]*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Chat, 0)
	for _, chat := range s.chats {
		for _, u := range chat.Users {
			if u.ID == user {
				cp := *chat
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryChatStore) AppendMessage(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[msg.ChatID]; !ok {
		return ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = s.now()
	cp := *msg
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], &cp)
	return nil
}

func (s *MemoryChatStore) MessagesForChat(_ context.Context, chatID string, limit int) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.chats[chatID]; !ok {
		return nil, ErrNotFound
	}
	msgs := s.messages[chatID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

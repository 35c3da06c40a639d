package store

import (
	"context"
	"sync"

	"github.com/vkuzmin/chatrelay/internal/domain"
)

// TokenIdentity is an IdentityProvider backed by a static token table,
// seeded from config. Stands in for the real identity service in
// development and tests.
type TokenIdentity struct {
	mu     sync.RWMutex
	tokens map[string]domain.User
}

func NewTokenIdentity() *TokenIdentity {
	return &TokenIdentity{tokens: make(map[string]domain.User)}
}

func (p *TokenIdentity) Seed(token string, user domain.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = user
}

func (p *TokenIdentity) Verify(_ context.Context, token string) (domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.tokens[token]
	if !ok {
		return domain.User{}, ErrUnknownToken
	}
	return user, nil
}

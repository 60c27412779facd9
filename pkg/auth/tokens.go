package auth

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// TokenStore keeps user OAuth tokens keyed by email.
type TokenStore interface {
	Put(email string, tok *oauth2.Token)
	Get(email string) (*oauth2.Token, bool)
	Emails() []string
}

// MemoryTokenStore is a process-local TokenStore. Tokens are lost on restart.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*oauth2.Token)}
}

func (s *MemoryTokenStore) Put(email string, tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[normalizeEmail(email)] = tok
}

func (s *MemoryTokenStore) Get(email string) (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[normalizeEmail(email)]
	return tok, ok
}

func (s *MemoryTokenStore) Emails() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tokens))
	for e := range s.tokens {
		out = append(out, e)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// refreshingTokens refreshes stored tokens through the OAuth config and
// writes refreshed tokens back.
type refreshingTokens struct {
	cfg   *oauth2.Config
	store TokenStore
}

func (r refreshingTokens) AccessToken(ctx context.Context, email string) (string, bool) {
	tok, ok := r.store.Get(email)
	if !ok {
		return "", false
	}
	fresh, err := r.cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", false
	}
	if fresh.AccessToken != tok.AccessToken {
		r.store.Put(email, fresh)
	}
	return fresh.AccessToken, true
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/tinyland-inc/botper/pkg/meetings"
)

const stateTTL = 10 * time.Minute

var ErrInvalidState = errors.New("unknown or expired oauth state")

type OAuthConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Person is the subset of /people/me the bot uses.
type Person struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"displayName"`
}

func (p Person) Email() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// OAuth runs the Webex authorization-code flow and stores the resulting user
// tokens by email.
type OAuth struct {
	cfg     *oauth2.Config
	baseURL string
	tokens  TokenStore
	now     func() time.Time

	mu     sync.Mutex
	states map[string]time.Time
}

func NewOAuth(c OAuthConfig, tokens TokenStore) *OAuth {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = "https://webexapis.com/v1"
	}
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL: base,
		tokens:  tokens,
		now:     time.Now,
		states:  make(map[string]time.Time),
	}
}

// AuthCodeURL returns the authorization redirect and remembers its state.
func (o *OAuth) AuthCodeURL() string {
	state := uuid.NewString()

	o.mu.Lock()
	now := o.now()
	for s, issued := range o.states {
		if now.Sub(issued) > stateTTL {
			delete(o.states, s)
		}
	}
	o.states[state] = now
	o.mu.Unlock()

	return o.cfg.AuthCodeURL(state)
}

// Exchange validates state, trades code for a token, looks up the user and
// stores the token under the user's email.
func (o *OAuth) Exchange(ctx context.Context, code, state string) (Person, error) {
	o.mu.Lock()
	issued, ok := o.states[state]
	delete(o.states, state)
	o.mu.Unlock()
	if !ok || o.now().Sub(issued) > stateTTL {
		return Person{}, ErrInvalidState
	}

	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return Person{}, fmt.Errorf("token exchange: %w", err)
	}

	me, err := o.Me(ctx, tok.AccessToken)
	if err != nil {
		return Person{}, err
	}
	if me.Email() == "" {
		return Person{}, errors.New("authorized user has no email")
	}
	o.tokens.Put(me.Email(), tok)
	return me, nil
}

// Me fetches /people/me for accessToken.
func (o *OAuth) Me(ctx context.Context, accessToken string) (Person, error) {
	var me Person
	resp, err := resty.New().SetBaseURL(o.baseURL).R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&me).
		Get("/people/me")
	if err != nil {
		return Person{}, fmt.Errorf("people/me: %w", err)
	}
	if resp.IsError() {
		return Person{}, fmt.Errorf("people/me: status %d", resp.StatusCode())
	}
	return me, nil
}

// Tokens returns a provider that hands out refreshed user access tokens.
func (o *OAuth) Tokens() meetings.TokenProvider {
	return refreshingTokens{cfg: o.cfg, store: o.tokens}
}

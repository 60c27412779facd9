package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newWebexStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"user-token","token_type":"Bearer","refresh_token":"r","expires_in":3600}`))
	})
	mux.HandleFunc("/people/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","emails":["Host@Example.com"],"displayName":"Host"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func stateOf(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestOAuthFlow(t *testing.T) {
	srv := newWebexStub(t)
	tokens := NewMemoryTokenStore()
	o := NewOAuth(OAuthConfig{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/cb",
		Scopes:       []string{"meeting:schedules_write"},
	}, tokens)

	authURL := o.AuthCodeURL()
	assert.True(t, strings.HasPrefix(authURL, srv.URL+"/authorize?"))
	state := stateOf(t, authURL)
	require.NotEmpty(t, state)

	me, err := o.Exchange(context.Background(), "the-code", state)
	require.NoError(t, err)
	assert.Equal(t, "Host@Example.com", me.Email())

	tok, ok := tokens.Get("host@example.com")
	require.True(t, ok)
	assert.Equal(t, "user-token", tok.AccessToken)

	access, ok := o.Tokens().AccessToken(context.Background(), "HOST@example.com")
	require.True(t, ok)
	assert.Equal(t, "user-token", access)

	_, err = o.Exchange(context.Background(), "the-code", state)
	assert.ErrorIs(t, err, ErrInvalidState, "state is single use")
}

func TestOAuthExpiredState(t *testing.T) {
	srv := newWebexStub(t)
	o := NewOAuth(OAuthConfig{BaseURL: srv.URL, ClientID: "client-id"}, NewMemoryTokenStore())
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }

	state := stateOf(t, o.AuthCodeURL())
	now = now.Add(stateTTL + time.Second)

	_, err := o.Exchange(context.Background(), "the-code", state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMemoryTokenStore(t *testing.T) {
	s := NewMemoryTokenStore()
	s.Put(" A@X.com ", &oauth2.Token{AccessToken: "t"})
	tok, ok := s.Get("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "t", tok.AccessToken)
	assert.Equal(t, []string{"a@x.com"}, s.Emails())

	_, ok = s.Get("b@x.com")
	assert.False(t, ok)
}

func TestLoginPasteToken(t *testing.T) {
	var out strings.Builder
	cred, err := LoginPasteToken("webex", strings.NewReader("  abc123 \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cred.AccessToken)
	assert.Equal(t, "token", cred.AuthMethod)
	assert.Contains(t, out.String(), "developer.webex.com")

	_, err = LoginPasteToken("webex", strings.NewReader("\n"), &out)
	assert.Error(t, err)

	_, err = LoginPasteToken("webex", strings.NewReader(""), &out)
	assert.Error(t, err)
}

package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// AuthCredential is a token obtained either by pasting it or through OAuth.
type AuthCredential struct {
	AccessToken string `json:"access_token"`
	Provider    string `json:"provider"`
	AuthMethod  string `json:"auth_method"`
}

// LoginPasteToken reads a bot token for provider from r.
func LoginPasteToken(provider string, r io.Reader, w io.Writer) (*AuthCredential, error) {
	fmt.Fprintf(w, "Paste your bot access token from %s:\n", providerDisplayName(provider))
	fmt.Fprint(w, "> ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		return nil, errors.New("no input received")
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	return &AuthCredential{
		AccessToken: token,
		Provider:    provider,
		AuthMethod:  "token",
	}, nil
}

func providerDisplayName(provider string) string {
	switch provider {
	case "webex":
		return "developer.webex.com"
	case "slack":
		return "api.slack.com/apps"
	case "telegram":
		return "@BotFather"
	default:
		return provider
	}
}

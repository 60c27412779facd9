// Package meetings is a client for the Webex Meetings REST API.
package meetings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://webexapis.com/v1"

var (
	// ErrPermission means the token lacks the meeting scopes.
	ErrPermission = errors.New("meeting scopes not granted")
	ErrNotFound   = errors.New("meeting not found")
)

// PermissionHelp tells an operator how to grant the meeting scopes.
const PermissionHelp = "To fix bot permissions: edit the bot at developer.webex.com, add the " +
	"meeting:schedules_write and meeting:schedules_read scopes, regenerate the token and update the config."

// APIError is a non-2xx response that is neither a permission nor a
// not-found error.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meetings api error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// TokenProvider returns a user access token for a host email, if one was
// obtained through OAuth.
type TokenProvider interface {
	AccessToken(ctx context.Context, email string) (string, bool)
}

type Meeting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Timezone  string    `json:"timezone,omitempty"`
	WebLink   string    `json:"webLink"`
	Password  string    `json:"password,omitempty"`
	HostEmail string    `json:"hostEmail,omitempty"`
	State     string    `json:"state,omitempty"`
}

type CreateRequest struct {
	Title        string
	Start        time.Time
	End          time.Time
	HostEmail    string
	Participants []string
}

type invitee struct {
	Email     string `json:"email"`
	SendEmail bool   `json:"sendEmail"`
}

type createBody struct {
	Title                 string    `json:"title"`
	Start                 string    `json:"start"`
	End                   string    `json:"end"`
	Timezone              string    `json:"timezone"`
	HostEmail             string    `json:"hostEmail,omitempty"`
	EnabledJoinBeforeHost bool      `json:"enabledJoinBeforeHost"`
	JoinBeforeHostMinutes int       `json:"joinBeforeHostMinutes"`
	SendEmail             bool      `json:"sendEmail"`
	ReminderTime          int       `json:"reminderTime"`
	Invitees              []invitee `json:"invitees,omitempty"`
}

type listResponse struct {
	Items []Meeting `json:"items"`
}

// Client talks to the Meetings API with the bot token, or with the host's
// own OAuth token when the TokenProvider has one.
type Client struct {
	rest     *resty.Client
	botToken string
	tokens   TokenProvider
}

type Option func(*Client)

// WithTokenProvider enables per-host user tokens.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) { c.tokens = tp }
}

func NewClient(baseURL, botToken string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		rest:     resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		botToken: botToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rest.SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return c
}

func (c *Client) request(ctx context.Context, hostEmail string) *resty.Request {
	token := c.botToken
	if c.tokens != nil && hostEmail != "" {
		if t, ok := c.tokens.AccessToken(ctx, hostEmail); ok {
			token = t
		}
	}
	return c.rest.R().SetContext(ctx).SetAuthToken(token)
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (Meeting, error) {
	body := createBody{
		Title:                 req.Title,
		Start:                 formatAPITime(req.Start),
		End:                   formatAPITime(req.End),
		Timezone:              "UTC",
		HostEmail:             req.HostEmail,
		EnabledJoinBeforeHost: true,
		JoinBeforeHostMinutes: 5,
		SendEmail:             true,
		ReminderTime:          15,
	}
	for _, p := range req.Participants {
		body.Invitees = append(body.Invitees, invitee{Email: p, SendEmail: true})
	}

	var out Meeting
	resp, err := c.request(ctx, req.HostEmail).SetBody(body).SetResult(&out).Post("/meetings")
	if err := check(resp, err, "create meeting"); err != nil {
		return Meeting{}, err
	}
	return out, nil
}

// List returns up to limit meetings, filtered by host when hostEmail is set.
func (c *Client) List(ctx context.Context, hostEmail string, limit int) ([]Meeting, error) {
	if limit <= 0 {
		limit = 10
	}
	r := c.request(ctx, hostEmail).SetQueryParam("max", fmt.Sprint(limit))
	if hostEmail != "" {
		r.SetQueryParam("hostEmail", hostEmail)
	}

	var out listResponse
	resp, err := r.SetResult(&out).Get("/meetings")
	if err := check(resp, err, "list meetings"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Get(ctx context.Context, id string) (Meeting, error) {
	var out Meeting
	resp, err := c.request(ctx, "").SetResult(&out).SetPathParam("id", id).Get("/meetings/{id}")
	if err := check(resp, err, "get meeting"); err != nil {
		return Meeting{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.request(ctx, "").SetPathParam("id", id).Delete("/meetings/{id}")
	return check(resp, err, "delete meeting")
}

// CheckPermissions probes the meetings endpoint with the bot token.
func (c *Client) CheckPermissions(ctx context.Context) error {
	_, err := c.List(ctx, "", 1)
	return err
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrPermission)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, &APIError{Status: code, Body: resp.String()})
	}
}

func formatAPITime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

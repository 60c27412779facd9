// Package gateway is the HTTP surface of the bot: one webhook endpoint per
// platform, the meeting form endpoint, the OAuth redirect pair and a status
// page.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tinyland-inc/botper/pkg/auth"
	"github.com/tinyland-inc/botper/pkg/commands"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/store"
)

const (
	maxBodyBytes          = 1 << 20
	defaultHandlerTimeout = 60 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// FormScheduler creates meetings from the web form.
type FormScheduler interface {
	ScheduleFromForm(ctx context.Context, hostEmail string, form commands.MeetingForm) (store.Meeting, error)
}

type Server struct {
	addr           string
	platforms      map[string]*Platform
	meter          *EventMeter
	oauth          *auth.OAuth
	forms          FormScheduler
	handlerTimeout time.Duration
	started        time.Time

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

type Option func(*Server)

func WithOAuth(o *auth.OAuth) Option {
	return func(s *Server) { s.oauth = o }
}

func WithFormScheduler(f FormScheduler) Option {
	return func(s *Server) { s.forms = f }
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(s *Server) { s.handlerTimeout = d }
}

func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		addr:           addr,
		platforms:      make(map[string]*Platform),
		meter:          NewEventMeter(),
		handlerTimeout: defaultHandlerTimeout,
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddPlatform mounts p at POST /{p.Name}/webhook.
func (s *Server) AddPlatform(p *Platform) {
	s.platforms[p.Name] = p
}

func (s *Server) Meter() *EventMeter { return s.meter }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{Status: "ok"})
	})
	mux.HandleFunc("POST /{platform}/webhook", s.handleWebhook)
	mux.HandleFunc("POST /meetings/form", s.handleMeetingForm)
	mux.HandleFunc("GET /auth/webex", s.handleAuthStart)
	mux.HandleFunc("GET /auth/webex/callback", s.handleAuthCallback)
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("gateway already running")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.listener = nil
		s.mu.Unlock()
	}()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.InfoCF("gateway", "Gateway listening", map[string]any{
		"addr":      ln.Addr().String(),
		"platforms": s.platformNames(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.InfoC("gateway", "Gateway stopped")
	return nil
}

// Addr returns the bound address while running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) platformNames() []string {
	names := make([]string, 0, len(s.platforms))
	for name := range s.platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	p, found := s.platforms[r.PathValue("platform")]
	if !found {
		writeJSON(w, http.StatusNotFound, Response{Status: "error", Message: "unknown platform"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Message: "could not read body"})
		return
	}

	// Replies must go out even if the platform hangs up early.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.handlerTimeout)
	defer cancel()

	status, resp := p.Handle(ctx, r.Header, body, s.meter)
	writeJSON(w, status, resp)
}

type statusPage struct {
	Status    string                   `json:"status"`
	Platforms []string                 `json:"platforms"`
	Uptime    string                   `json:"uptime"`
	Events    map[string]PlatformMeter `json:"events"`
	OAuth     bool                     `json:"oauth"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusPage{
		Status:    "ok",
		Platforms: s.platformNames(),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Events:    s.meter.Snapshot(),
		OAuth:     s.oauth != nil,
	})
}

type meetingResult struct {
	Status  string        `json:"status"`
	Meeting store.Meeting `json:"meeting"`
}

func (s *Server) handleMeetingForm(w http.ResponseWriter, r *http.Request) {
	if s.forms == nil {
		writeJSON(w, http.StatusNotFound, Response{Status: "error", Message: "meeting scheduling is not configured"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Message: "invalid form"})
		return
	}
	host := r.PostForm.Get("host_email")
	if host == "" {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Message: "host_email is required"})
		return
	}

	form := commands.MeetingForm{
		Title:        r.PostForm.Get("title"),
		Date:         r.PostForm.Get("date"),
		Time:         r.PostForm.Get("time"),
		Timezone:     r.PostForm.Get("timezone"),
		Duration:     r.PostForm.Get("duration"),
		Participants: r.PostForm.Get("participants"),
	}
	m, err := s.forms.ScheduleFromForm(r.Context(), host, form)
	if ve, isValidation := commands.AsValidation(err); isValidation {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Message: ve.Msg})
		return
	}
	if err != nil {
		logger.ErrorCF("gateway", "Form meeting failed", map[string]any{"host": host, "error": err.Error()})
		writeJSON(w, http.StatusBadGateway, Response{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, meetingResult{Status: "ok", Meeting: m})
}

func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeJSON(w, http.StatusNotFound, Response{Status: "error", Message: "oauth is not enabled"})
		return
	}
	http.Redirect(w, r, s.oauth.AuthCodeURL(), http.StatusFound)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeJSON(w, http.StatusNotFound, Response{Status: "error", Message: "oauth is not enabled"})
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Message: e})
		return
	}
	person, err := s.oauth.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	if errors.Is(err, auth.ErrInvalidState) {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Message: "invalid or expired state"})
		return
	}
	if err != nil {
		logger.ErrorCF("gateway", "OAuth exchange failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusBadGateway, Response{Status: "error", Message: "authorization failed"})
		return
	}
	logger.InfoCF("gateway", "User authorized", map[string]any{"email": person.Email()})
	writeJSON(w, http.StatusOK, Response{Status: "ok", Message: "Authorized " + person.Email()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.DebugCF("gateway", "Response write failed", map[string]any{"error": err.Error()})
	}
}

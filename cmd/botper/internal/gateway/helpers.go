package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/pkg/auth"
	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/channels"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/dedup"
	"github.com/tinyland-inc/botper/pkg/dispatch"
	"github.com/tinyland-inc/botper/pkg/events"
	"github.com/tinyland-inc/botper/pkg/gateway"
	"github.com/tinyland-inc/botper/pkg/housekeeping"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/reconcile"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

var errNoChannels = errors.New("no channels enabled")

// app is everything the gateway runs, assembled from config.
type app struct {
	bus       *bus.MessageBus
	manager   *channels.Manager
	server    *gateway.Server
	sessions  []*session.Store
	platforms []*gateway.Platform
}

func gatewayCmd(debug, withHousekeeping bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	}

	st, err := store.OpenSQLite(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer st.Close()

	a, err := buildApp(cfg, st)
	if err != nil {
		return err
	}

	var hk *housekeeping.Service
	if withHousekeeping && cfg.Housekeeping.Enabled {
		hk, err = housekeeping.NewService(cfg.Housekeeping.Schedule, st,
			housekeeping.WithSessions(a.sessions...))
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.manager.StartAll(ctx); err != nil {
		return fmt.Errorf("error starting channels: %w", err)
	}
	fmt.Printf("Channels enabled: %v\n", a.manager.Names())
	fmt.Printf("Gateway listening on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	g.Go(func() error { return a.manager.Run(gctx) })
	if hk != nil {
		g.Go(func() error { return hk.Run(gctx) })
	}

	err = g.Wait()
	if stopErr := a.manager.StopAll(context.Background()); stopErr != nil {
		logger.WarnCF("gateway", "Channel shutdown failed", map[string]any{"error": stopErr.Error()})
	}
	a.bus.Close()
	fmt.Println("Gateway stopped")
	return err
}

// buildApp wires one platform per enabled channel. Platforms share the task
// store and the meeting client but keep their own sessions and dedup window.
func buildApp(cfg *config.Config, st store.Store) (*app, error) {
	names := cfg.EnabledChannels()
	if len(names) == 0 {
		return nil, errNoChannels
	}

	a := &app{bus: bus.NewMessageBus()}
	a.manager = channels.NewManager(a.bus)

	var serverOpts []gateway.Option
	var tokens meetings.TokenProvider
	if cfg.OAuth.Enabled {
		oa := auth.NewOAuth(auth.OAuthConfig{
			BaseURL:      cfg.Meetings.BaseURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       cfg.OAuth.Scopes,
		}, auth.NewMemoryTokenStore())
		tokens = oa.Tokens()
		serverOpts = append(serverOpts, gateway.WithOAuth(oa))
	}
	client := internal.MeetingClient(cfg, tokens)

	for _, name := range names {
		ch, err := internal.NewChannel(cfg, name)
		if err != nil {
			return nil, fmt.Errorf("error creating %s channel: %w", name, err)
		}
		a.manager.Register(ch)

		sessions := session.NewStore(cfg.Sessions.TTL())
		a.sessions = append(a.sessions, sessions)
		outbox := channels.NewOutbox(a.bus, name)

		opts := dispatch.Options{
			Platform:        name,
			Store:           st,
			Sessions:        sessions,
			Messenger:       outbox,
			DefaultDuration: cfg.Meetings.Duration(),
			StartBuffer:     cfg.Meetings.StartBuffer(),
		}
		var getter reconcile.MeetingGetter
		if client != nil {
			opts.Provider = client
			getter = client
		}
		bot := dispatch.New(opts)

		p := &gateway.Platform{
			Name:          name,
			Channel:       ch,
			Dedup:         dedup.New(cfg.Sessions.DedupWindow),
			Classifier:    events.NewClassifier(ch, events.SelfCheckPolicy(cfg.Sessions.SelfCheckPolicy)),
			Bot:           bot,
			Reconciler:    reconcile.NewEngine(name, sessions, st, outbox, getter),
			FetchAttempts: cfg.Sessions.FetchAttempts,
			FetchBackoff:  cfg.Sessions.FetchBackoff(),
		}
		a.platforms = append(a.platforms, p)

		// The web form creates meetings on behalf of Webex hosts.
		if name == "webex" {
			serverOpts = append(serverOpts, gateway.WithFormScheduler(bot))
		}
	}

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	a.server = gateway.NewServer(addr, serverOpts...)
	for _, p := range a.platforms {
		a.server.AddPlatform(p)
	}
	return a, nil
}

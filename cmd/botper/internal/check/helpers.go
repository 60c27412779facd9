package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/meetings"
)

var loadConfig = internal.LoadConfig

var errChecksFailed = errors.New("one or more checks failed")

const probeTimeout = 15 * time.Second

func checkCmd(ctx context.Context, out io.Writer, skipMeetings bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if !runChecks(ctx, out, cfg, skipMeetings) {
		return errChecksFailed
	}
	return nil
}

// runChecks prints one line per probe and reports whether all passed.
func runChecks(ctx context.Context, out io.Writer, cfg *config.Config, skipMeetings bool) bool {
	passed := true
	names := cfg.EnabledChannels()
	if len(names) == 0 {
		fmt.Fprintln(out, "WARN  no channels enabled")
	}

	for _, name := range names {
		ch, err := internal.NewChannel(cfg, name)
		if err != nil {
			fmt.Fprintf(out, "FAIL  %s: %v\n", name, err)
			passed = false
			continue
		}
		id, err := ch.SelfID(ctx)
		if err != nil {
			fmt.Fprintf(out, "FAIL  %s token: %v\n", name, err)
			passed = false
			continue
		}
		fmt.Fprintf(out, "OK    %s token (bot id %s)\n", name, id)
	}

	if skipMeetings {
		return passed
	}
	client := internal.MeetingClient(cfg, nil)
	if client == nil {
		fmt.Fprintln(out, "SKIP  meetings: scheduling disabled or no webex token")
		return passed
	}
	err := client.CheckPermissions(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(out, "OK    meetings: scheduling scopes granted")
	case errors.Is(err, meetings.ErrPermission):
		fmt.Fprintf(out, "FAIL  meetings: %v\n      %s\n", err, meetings.PermissionHelp)
		passed = false
	default:
		fmt.Fprintf(out, "FAIL  meetings: %v\n", err)
		passed = false
	}
	return passed
}

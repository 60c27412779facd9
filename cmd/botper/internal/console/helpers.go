package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/dispatch"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

const cardPrefix = "/card"

func consoleCmd(message, email, room string, debug bool) error {
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

	opts := dispatch.Options{
		Platform:        "console",
		Store:           st,
		Sessions:        session.NewStore(cfg.Sessions.TTL()),
		Messenger:       printer{w: os.Stdout},
		DefaultDuration: cfg.Meetings.Duration(),
		StartBuffer:     cfg.Meetings.StartBuffer(),
	}
	if client := internal.MeetingClient(cfg, nil); client != nil {
		opts.Provider = client
	}

	c := &console{
		bot: dispatch.New(opts),
		req: dispatch.Request{RoomID: room, ActorID: "console", ActorEmail: email},
		out: os.Stdout,
	}

	if message != "" {
		c.handleLine(context.Background(), message)
		return nil
	}

	fmt.Printf("%s Console mode (Ctrl+C to exit). Type \"hello\" for the command list.\n\n", internal.Logo)
	c.interactive()
	return nil
}

type console struct {
	bot *dispatch.Bot
	req dispatch.Request
	out io.Writer
}

// handleLine runs one input line and reports whether the console should exit.
// "/card key=value ..." submits card inputs; anything else is chat text.
func (c *console) handleLine(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return false
	case "exit", "quit":
		fmt.Fprintln(c.out, "Goodbye!")
		return true
	}

	var err error
	if rest, isCard := strings.CutPrefix(input, cardPrefix); isCard {
		err = c.bot.HandleCard(ctx, c.req, parseCardLine(rest))
	} else {
		err = c.bot.HandleText(ctx, c.req, input)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *console) interactive() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s > ", internal.Logo),
		HistoryFile:     filepath.Join(os.TempDir(), ".botper_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		c.simple(os.Stdin)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(c.out, "Error reading input: %v\n", err)
			continue
		}
		if c.handleLine(context.Background(), line) {
			return
		}
	}
}

func (c *console) simple(r io.Reader) {
	reader := bufio.NewReader(r)
	for {
		fmt.Fprintf(c.out, "%s > ", internal.Logo)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(c.out, "Error reading input: %v\n", err)
			}
			fmt.Fprintln(c.out, "\nGoodbye!")
			return
		}
		if c.handleLine(context.Background(), line) {
			return
		}
	}
}

// parseCardLine reads space-separated key=value pairs. Values may be
// double-quoted to contain spaces.
func parseCardLine(s string) map[string]string {
	inputs := make(map[string]string)
	s = strings.TrimSpace(s)
	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var val string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				val, s = s[1:], ""
			} else {
				val, s = s[1:end+1], s[end+2:]
			}
		} else if sp := strings.IndexByte(s, ' '); sp >= 0 {
			val, s = s[:sp], s[sp+1:]
		} else {
			val, s = s, ""
		}
		if key != "" {
			inputs[key] = val
		}
		s = strings.TrimSpace(s)
	}
	return inputs
}

// printer renders replies as plain text. Card actions are printed as the
// /card line that would submit them.
type printer struct {
	w io.Writer
}

func (p printer) SendText(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintf(p.w, "%s\n\n", text)
	return err
}

func (p printer) SendCard(_ context.Context, _ string, text string, card *cards.Card) error {
	var b strings.Builder
	if text != "" {
		b.WriteString(text + "\n")
	}
	if card != nil {
		if body := cards.PlainText(card); body != "" {
			b.WriteString(body + "\n")
		}
		for _, r := range card.Rows {
			for _, a := range r.Actions {
				fmt.Fprintf(&b, "  [%s] %s\n", a.Title, cardLine(a.Data))
			}
		}
		for _, a := range card.Actions {
			fmt.Fprintf(&b, "  [%s] %s\n", a.Title, cardLine(a.Data))
		}
	}
	_, err := fmt.Fprintf(p.w, "%s\n", b.String())
	return err
}

func cardLine(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{cardPrefix}
	for _, k := range keys {
		v := data[k]
		if v == "" || strings.ContainsAny(v, " \t") {
			v = `"` + v + `"`
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

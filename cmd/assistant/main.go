// Package main is an interactive terminal front-end for the assistant.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/capitalize-ai/assistant-session/internal/app"
	"github.com/capitalize-ai/assistant-session/internal/config"
	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/internal/session"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOutput, help, err := parseFlags(args, cfg)
	if err != nil || help {
		return err
	}

	log, err := logger.New(cfg.LogLevel, logOutput)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	r := newREPL(rt.Session, out)
	return r.loop(ctx, in)
}

// parseFlags overlays command-line flags on cfg. Unset flags keep the values
// loaded from the environment and config file.
func parseFlags(args []string, cfg *config.Config) (logOutput string, help bool, err error) {
	flagSet := pflag.NewFlagSet("assistant", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "completion endpoint base URL")
	flagSet.StringVar(&cfg.Provider, "provider", cfg.Provider, "dispatcher: endpoint, openai or anthropic")
	flagSet.StringVar(&cfg.Model, "model", cfg.Model, "model name for provider dispatchers")
	flagSet.StringVar(&cfg.Store, "store", cfg.Store, "persistent store: file, memory or nats")
	flagSet.StringVar(&cfg.StoreDir, "store-dir", cfg.StoreDir, "directory for the file store")
	flagSet.BoolVar(&cfg.CancelOnClear, "cancel-on-clear", cfg.CancelOnClear, "abort pending sends when the conversation is cleared")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (defaults to LOG_LEVEL or the config file)")
	flagSet.StringVar(&logOutput, "log-output", "stderr", "log destination path")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return "", true, nil
		}
		return "", false, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return "", true, nil
	}
	return logOutput, false, nil
}

// repl renders a session in the terminal. Sends run in the background so
// the prompt stays usable while a reply is pending.
type repl struct {
	session *session.Session
	out     io.Writer

	mu sync.Mutex

	user      func(a ...interface{}) string
	assistant func(a ...interface{}) string
	errorText func(a ...interface{}) string
	dim       func(a ...interface{}) string

	wg sync.WaitGroup
}

func newREPL(sess *session.Session, out io.Writer) *repl {
	return &repl{
		session:   sess,
		out:       out,
		user:      color.New(color.FgGreen, color.Bold).SprintFunc(),
		assistant: color.New(color.FgCyan, color.Bold).SprintFunc(),
		errorText: color.New(color.FgRed).SprintFunc(),
		dim:       color.New(color.Faint).SprintFunc(),
	}
}

func (r *repl) loop(ctx context.Context, in io.Reader) error {
	events, unsubscribe := r.session.Subscribe(64)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		r.render(events)
	}()

	// Replies settled before exit are printed before loop returns.
	defer func() {
		r.wg.Wait()
		unsubscribe()
		<-rendered
	}()

	r.println(r.assistant("Capitalize assistant"), r.dim("(type /help for commands, exit to quit)"))
	for _, msg := range r.session.Messages() {
		r.printMessage(msg)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.EqualFold(trimmed, "exit") || trimmed == "/quit" {
		return true
	}

	if !strings.HasPrefix(trimmed, "/") {
		r.send(ctx, func(ctx context.Context) (*model.Message, error) {
			return r.session.Submit(ctx, line)
		})
		return false
	}

	cmd, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/help":
		r.println(r.dim("/history  /status  /prefs  /retry  /clear  /edit <id> <text>  /delete <id>  exit"))
	case "/history":
		for _, msg := range r.session.Messages() {
			r.printMessage(msg)
		}
	case "/status":
		snap := r.session.Snapshot()
		status := fmt.Sprintf("status=%s pending=%d rate_limited=%t", snap.Status, snap.Pending, snap.RateLimited)
		if snap.LastError != nil {
			status += " last_error=" + snap.LastError.Kind
		}
		r.println(r.dim(status))
	case "/prefs":
		prefs := r.session.Preferences()
		var tags []string
		for _, topic := range model.Topics {
			if prefs[topic] {
				tags = append(tags, string(topic))
			}
		}
		if len(tags) == 0 {
			r.println(r.dim("no preferences detected yet"))
		} else {
			r.println(r.dim("interests: " + strings.Join(tags, ", ")))
		}
	case "/retry":
		r.send(ctx, r.session.Retry)
	case "/clear":
		if err := r.session.Clear(ctx); err != nil {
			r.println(r.errorText("failed to purge stored conversation: " + err.Error()))
		}
	case "/edit":
		ref, text, _ := strings.Cut(rest, " ")
		id, ok := r.resolve(ref)
		if !ok {
			return false
		}
		if err := r.session.Edit(ctx, id, text); err != nil {
			r.println(r.errorText(err.Error()))
		}
	case "/delete":
		id, ok := r.resolve(rest)
		if !ok {
			return false
		}
		if err := r.session.Delete(ctx, id); err != nil {
			r.println(r.errorText(err.Error()))
		}
	default:
		r.println(r.errorText("unknown command " + cmd))
	}
	return false
}

func (r *repl) send(ctx context.Context, fn func(context.Context) (*model.Message, error)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := fn(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, session.ErrDiscarded) {
			r.println(r.errorText(err.Error()))
		}
	}()
}

// resolve maps a short id (any suffix of a message id) to the full id.
func (r *repl) resolve(ref string) (string, bool) {
	if ref == "" {
		r.println(r.errorText("message id required"))
		return "", false
	}
	var match string
	for _, msg := range r.session.Messages() {
		if strings.HasSuffix(msg.ID, ref) {
			if match != "" {
				r.println(r.errorText("ambiguous message id " + ref))
				return "", false
			}
			match = msg.ID
		}
	}
	if match == "" {
		r.println(r.errorText(session.ErrMessageNotFound.Error()))
		return "", false
	}
	return match, true
}

func (r *repl) render(events <-chan model.SessionEvent) {
	for event := range events {
		switch event.Type {
		case model.EventAppended:
			if event.Message.Sender == model.SenderAssistant {
				r.printMessage(event.Message)
			}
		case model.EventEdited:
			r.println(r.dim("edited"), r.dim(shortID(event.MessageID)))
		case model.EventDeleted:
			r.println(r.dim("deleted"), r.dim(shortID(event.MessageID)))
		case model.EventCleared:
			r.println(r.dim("conversation cleared"))
			r.printMessage(event.Message)
		}
	}
}

func (r *repl) printMessage(msg *model.Message) {
	id := r.dim("[" + shortID(msg.ID) + "]")
	switch {
	case msg.Sender == model.SenderUser:
		r.println(id, r.user("You:"), msg.Text)
	case msg.Status == model.StatusError:
		r.println(id, r.assistant("Assistant:"), r.errorText(msg.Text))
	default:
		r.println(id, r.assistant("Assistant:"), msg.Text)
		for _, ref := range msg.ToolReferences {
			r.println("    ", r.dim("→ "+ref.Label+" "+ref.Target))
		}
		for _, s := range msg.Suggestions {
			r.println("    ", r.dim("• "+s))
		}
	}
}

func (r *repl) println(a ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, a...)
}

// shortID keeps the random tail of a time-ordered id.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Capitalize assistant: chat with the financial assistant from a terminal.

The conversation is restored from the persistent store on start and saved
after every change. Messages are sent in the background; replies appear in
the order they arrive.

Usage:
  assistant [flags]

Flags:
`)
	flagSet.PrintDefaults()
}

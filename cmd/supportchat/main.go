// Command supportchat runs the support chat in a terminal against the
// configured completion provider and prints the booking actions the gate
// would render under each reply.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/wolfman30/photka-support-ai/internal/app/bootstrap"
	"github.com/wolfman30/photka-support-ai/internal/chat"
	appconfig "github.com/wolfman30/photka-support-ai/internal/config"
	"github.com/wolfman30/photka-support-ai/internal/conversation"
	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

var (
	userName = flag.String("name", "Alex Rivera", "Display name used in the greeting")
	userID   = flag.String("user", "local-user", "User id the chat belongs to")
	explain  = flag.Bool("explain", false, "Print the gate reason under every reply")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat("warn", "text")

	client, cleanup, err := bootstrap.BuildCompletionClient(ctx, cfg, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	opts := conversation.DefaultOptions()
	opts.HistoryWindow = cfg.HistoryWindow
	manager := conversation.NewManager(conversation.ManagerConfig{
		Client:  client,
		Options: opts,
		Logger:  logger,
	})

	if err := run(ctx, manager, os.Stdin, os.Stdout, *explain); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, manager *conversation.Manager, in io.Reader, out io.Writer, explain bool) error {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	session := manager.Open(ctx, *userID, *userName)
	fmt.Fprintln(out, boldGreen("photka support"))
	fmt.Fprintln(out, "Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Fprintln(out)
	for _, m := range session.Snapshot() {
		fmt.Fprintf(out, "%s %s\n\n", boldCyan("Support:"), m.Text)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(text, "exit") {
			return nil
		}
		if text == "" {
			continue
		}

		turn, err := session.Submit(ctx, text)
		if err != nil {
			return err
		}

		label := boldCyan("Support:")
		if turn.Reply.Kind == chat.KindError {
			label = red("Support:")
		}
		fmt.Fprintf(out, "%s %s\n", label, turn.Reply.Text)
		printDecision(out, turn.Decision, yellow, faint, explain)
		fmt.Fprintln(out)
	}
}

func printDecision(out io.Writer, d intent.Decision, highlight, faint func(a ...any) string, explain bool) {
	for _, a := range d.Actions {
		fmt.Fprintf(out, "  %s %s\n", highlight("["+a.Label+"]"), faint(a.Path))
	}
	if explain {
		fmt.Fprintf(out, "  %s\n", faint("gate: "+string(d.Reason)))
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/frontdesk/internal/conversation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session",
		Long: `Read messages from stdin and answer each one.

Commands: /reset clears the session, /new starts a new one, /quit exits.`,
		Run: runChat,
	}

	cmd.Flags().StringP("session", "s", "", "Resume a session id")

	RootCmd.AddCommand(cmd)
}

var (
	promptColor  = color.New(color.FgCyan, color.Bold)
	sessionColor = color.New(color.Faint)
	replyColor   = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

func runChat(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("session")
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, mustConfig())
	if err != nil {
		exitErr("open", err)
	}
	defer rt.Close()

	if err := chatLoop(ctx, rt.orch, key, os.Stdin, os.Stdout, os.Stderr); err != nil {
		exitErr("read stdin", err)
	}
}

// chatter is the part of the orchestrator the chat loop drives.
type chatter interface {
	HandleTurn(ctx context.Context, userText, key string, now time.Time) (string, error)
	ResetSession(ctx context.Context, key string) (string, error)
	NewSessionID() string
}

// chatLoop answers lines from in until EOF, /quit or cancellation of ctx.
// Replies go to out, prompts and session notices to status.
func chatLoop(ctx context.Context, c chatter, key string, in io.Reader, out, status io.Writer) error {
	if key == "" {
		key = c.NewSessionID()
	}
	sessionColor.Fprintf(status, "session: %s\n", key)

	sc := bufio.NewScanner(in)
	for ctx.Err() == nil {
		promptColor.Fprint(status, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			key = c.NewSessionID()
			sessionColor.Fprintf(status, "session: %s\n", key)
			continue
		case "/reset":
			msg, err := c.ResetSession(ctx, key)
			if err != nil {
				fmt.Fprintf(status, "error: reset: %v\n", err)
				continue
			}
			replyColor.Fprintln(out, msg)
			continue
		}

		reply, err := c.HandleTurn(ctx, line, key, time.Now().UTC())
		if err != nil {
			warnColor.Fprintln(out, conversation.UserMessage(err))
			continue
		}
		replyColor.Fprintln(out, reply)
	}
	return nil
}

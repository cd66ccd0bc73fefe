package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/frontdesk/internal/conversation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Answer a single message",
		Long:  "Run one conversation turn. Without --session a new session is created and its id printed to stderr.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	cmd.Flags().StringP("session", "s", "", "Session id")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("session")
	text := strings.Join(args, " ")

	rt, err := openRuntime(cmd.Context(), mustConfig())
	if err != nil {
		exitErr("open", err)
	}
	defer rt.Close()

	if key == "" {
		key = rt.orch.NewSessionID()
		fmt.Fprintf(os.Stderr, "session: %s\n", key)
	}

	reply, err := rt.orch.HandleTurn(cmd.Context(), text, key, time.Now().UTC())
	if err != nil {
		if jsonOutput() {
			printJSON(map[string]interface{}{"session": key, "error": err.Error(), "response": conversation.UserMessage(err)})
			os.Exit(1)
		}
		fmt.Println(conversation.UserMessage(err))
		exitErr("turn", err)
	}

	if jsonOutput() {
		printJSON(map[string]string{"session": key, "response": reply})
		return
	}
	fmt.Println(reply)
}

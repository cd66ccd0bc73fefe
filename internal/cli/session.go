package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/frontdesk/internal/session"
)

func init() {
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear a session's history",
		Run:   runReset,
	}
	reset.Flags().StringP("session", "s", "", "Session id (required)")
	reset.MarkFlagRequired("session")

	newSession := &cobra.Command{
		Use:   "new-session",
		Short: "Print a new session id",
		Run:   runNewSession,
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show a session's turns",
		Run:   runHistory,
	}
	history.Flags().StringP("session", "s", "", "Session id (required)")
	history.MarkFlagRequired("session")

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions",
		Run:   runSessions,
	}
	sessions.Flags().Bool("stats", false, "Show turn counts instead of keys")

	RootCmd.AddCommand(reset, newSession, history, sessions)
}

func runReset(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("session")

	rt, err := openSessionRuntime(mustConfig())
	if err != nil {
		exitErr("open sessions", err)
	}
	defer rt.Close()

	msg, err := rt.orch.ResetSession(cmd.Context(), key)
	if err != nil {
		exitErr("reset", err)
	}
	fmt.Println(msg)
}

func runNewSession(cmd *cobra.Command, args []string) {
	rt, err := openSessionRuntime(mustConfig())
	if err != nil {
		exitErr("open sessions", err)
	}
	defer rt.Close()

	fmt.Println(rt.orch.NewSessionID())
}

func runHistory(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("session")

	rt, err := openSessionRuntime(mustConfig())
	if err != nil {
		exitErr("open sessions", err)
	}
	defer rt.Close()

	turns, err := rt.orch.History(cmd.Context(), key)
	if err != nil {
		exitErr("history", err)
	}

	if jsonOutput() {
		printJSON(turns)
		return
	}
	for _, t := range turns {
		fmt.Printf("[%s] (%s/%s)\nUser: %s\nAssistant: %s\n\n",
			t.Timestamp.Format("2006-01-02 15:04:05"), t.IntentTag, t.Source, t.UserText, t.AssistantText)
	}
}

func runSessions(cmd *cobra.Command, args []string) {
	withStats, _ := cmd.Flags().GetBool("stats")
	cfg := mustConfig()

	s, err := openSessions(cfg)
	if err != nil {
		exitErr("open sessions", err)
	}
	defer s.Close()

	if withStats {
		st, err := session.StatsOf(cmd.Context(), cfg.Session.Backend, s)
		if err != nil {
			exitErr("stats", err)
		}
		printJSON(st)
		return
	}

	keys, err := s.Keys(cmd.Context())
	if err != nil {
		exitErr("list sessions", err)
	}
	if jsonOutput() {
		if keys == nil {
			keys = []string{}
		}
		printJSON(keys)
		return
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

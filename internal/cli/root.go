// Package cli implements the frontdesk CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/frontdesk/internal/config"
)

var (
	configPath string
	sessionDB  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "frontdesk",
	Short: "Retrieval-grounded receptionist chat",
	Long:  "A front-desk assistant that answers from a precomputed FAQ vector store and keeps per-session history.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./frontdesk.yaml or ~/.config/frontdesk/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&sessionDB, "session-db", "", "Session database path (default: $FRONTDESK_SESSION_DB or ~/.frontdesk/sessions.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if sessionDB != "" {
		cfg.Session.DBPath = sessionDB
	}
	return cfg, nil
}

func mustConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func jsonOutput() bool {
	return formatFlag == "json"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

package cli

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/frontdesk/internal/intent"
	"github.com/rcliao/frontdesk/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Show intent flags and the flow intent for a message",
		Args:  cobra.MinimumNArgs(1),
		Run:   runClassify,
	}

	RootCmd.AddCommand(cmd)
}

type classifyResult struct {
	Signal    model.IntentSignal `json:"signal"`
	Flags     []string           `json:"flags"`
	Tag       string             `json:"tag"`
	Flow      model.FlowResult   `json:"flow"`
	Suggested string             `json:"suggested_response"`
}

func runClassify(cmd *cobra.Command, args []string) {
	text := strings.Join(args, " ")
	cfg := mustConfig()

	tables, err := intent.LoadTables(cfg.Intent.TablesPath)
	if err != nil {
		exitErr("load intent tables", err)
	}

	signal := intent.NewClassifier(tables).Classify(text)
	flow := intent.NewFlowClassifier(tables)
	res := flow.Analyze(text)

	out := classifyResult{
		Signal:    signal,
		Flags:     signal.Flags(),
		Tag:       intent.Tag(signal),
		Flow:      res,
		Suggested: flow.Respond(res, rand.New(rand.NewSource(time.Now().UnixNano()))),
	}
	if out.Flags == nil {
		out.Flags = []string{}
	}

	if jsonOutput() {
		printJSON(out)
		return
	}
	fmt.Printf("tag:        %s\n", out.Tag)
	fmt.Printf("flags:      %s\n", strings.Join(out.Flags, ", "))
	fmt.Printf("flow:       %s (%.2f)\n", res.Intent, res.Confidence)
	if len(res.Next) > 0 {
		fmt.Printf("next:       %s\n", strings.Join(res.Next, ", "))
	}
	fmt.Printf("suggested:  %s\n", out.Suggested)
}

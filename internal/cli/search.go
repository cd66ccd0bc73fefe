package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the vector store",
		Long:  "Rank stored texts by cosine similarity to the (expanded) query.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("top-k", "k", 0, "Max results (default: retrieval.top_k)")
	cmd.Flags().Float64("min-similarity", -1, "Similarity threshold (default: retrieval.min_similarity)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	topK, _ := cmd.Flags().GetInt("top-k")
	minSim, _ := cmd.Flags().GetFloat64("min-similarity")
	query := strings.Join(args, " ")

	cfg := mustConfig()
	if topK == 0 {
		topK = cfg.Retrieval.TopK
	}
	if minSim < 0 {
		minSim = cfg.Retrieval.MinSimilarity
	}

	log := newLogger(cfg)
	rt, err := openSearch(cfg, log)
	if err != nil {
		exitErr("open", err)
	}
	defer rt.Close()

	hits, err := rt.searcher.ScoredSearch(cmd.Context(), query, topK, minSim)
	if err != nil {
		exitErr("search", err)
	}

	if jsonOutput() {
		printJSON(hits)
		return
	}
	for _, h := range hits {
		fmt.Printf("%.4f  #%d  %s\n", h.Score, h.Index, h.Text)
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memory by semantic similarity",
		Long:  "Embed the query and scan recent conversation and document units for similar content.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("conversation", "", "Current conversation id to exclude")
	cmd.Flags().IntP("limit", "l", 0, "Max results")
	cmd.Flags().Float64P("threshold", "t", 0, "Relevance threshold")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	conversationID, _ := cmd.Flags().GetString("conversation")
	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	query := strings.Join(args, " ")

	cfg := loadConfig()
	if limit <= 0 {
		limit = cfg.MaxResults
	}
	if threshold <= 0 {
		threshold = cfg.RelevanceThreshold
	}

	s := openStore(cfg)
	defer s.Close()

	results, err := search.New(s, newEmbedder(cfg)).Search(cmd.Context(), search.Params{
		Query:          query,
		ConversationID: conversationID,
		MaxResults:     limit,
		Threshold:      threshold,
	})
	if err != nil {
		exitErr("search", err)
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/search"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/summarize"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message and store the completed turn",
		Long: "Run one conversation turn: search memory for relevant context, assemble the " +
			"prompt, call the language model, and persist both messages.",
		Args: cobra.MinimumNArgs(1),
		Run:  runChat,
	}

	cmd.Flags().String("conversation", "", "Conversation id (new conversation when empty)")
	cmd.Flags().Bool("no-context", false, "Skip the memory search")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	conversationID, _ := cmd.Flags().GetString("conversation")
	noContext, _ := cmd.Flags().GetBool("no-context")
	input := strings.Join(args, " ")

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	embedder := newEmbedder(cfg)
	summarizer := newSummarizer(cfg)

	sess, err := session.Load(cmd.Context(), s, embedder, summarizer, session.Config{
		ConversationID: conversationID,
		SystemPrompt:   cfg.SystemPrompt,
		Depth:          cfg.MemoryDepth,
	})
	if err != nil {
		exitErr("load session", err)
	}

	var results *search.Results
	if !noContext {
		results, _ = search.New(s, embedder).Search(cmd.Context(), search.Params{
			Query:          input,
			ConversationID: sess.ConversationID(),
			MaxResults:     cfg.MaxResults,
			Threshold:      cfg.RelevanceThreshold,
		})
	}

	prompt := sess.BuildPrompt(results, input)

	llm, err := summarize.NewAnthropicClient(cfg.Model)
	if err != nil {
		exitErr("language model", err)
	}
	reply, err := llm.Complete(cmd.Context(), "", prompt)
	if err != nil {
		exitErr("generate", err)
	}

	done, err := sess.CompleteTurn(cmd.Context(), input, reply)
	if err != nil {
		exitErr("store turn", err)
	}

	fmt.Println(reply)
	fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", sess.ConversationID())

	if done != nil {
		if err := <-done; err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: summarization skipped: %v\n", err)
		}
	}
}

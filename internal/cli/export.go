package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [conversation-id]",
		Short: "Export a conversation transcript",
		Long:  "Export a conversation's messages in position order, as JSON or plain text.",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}

	cmd.Flags().StringP("format", "f", "json", "Output format: json or text")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	units, err := s.FetchOrdered(cmd.Context(), model.KindConversation, args[0])
	if err != nil {
		exitErr("export", err)
	}

	messages := make([]model.Message, 0, len(units))
	for _, u := range units {
		messages = append(messages, model.Message{
			Role:      model.RoleFor(u.IsUser),
			Text:      u.Text,
			Position:  u.Position,
			Timestamp: u.Timestamp,
		})
	}

	if format == "text" {
		for _, m := range messages {
			fmt.Printf("[%s] %s\n", m.Role, m.Text)
		}
		return
	}
	b, _ := json.MarshalIndent(messages, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mnemoserver "github.com/mnemo-ai/mnemo/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: "Expose memory as MCP tools (memory_search, memory_store_turn, memory_store_content, " +
			"memory_get_messages, memory_status, memory_reset) over stdio, for use from MCP-capable clients.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			st := openStore(cfg)

			s, cleanup, err := mnemoserver.New(cfg, st, newEmbedder(cfg), newSummarizer(cfg))
			if err != nil {
				st.Close()
				exitErr("init server", err)
			}
			defer cleanup()

			if err := server.ServeStdio(s); err != nil {
				exitErr("serve", err)
			}
		},
	}
	RootCmd.AddCommand(cmd)
}

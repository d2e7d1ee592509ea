package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List imported sources",
		Run:   runSources,
	}

	cmd.Flags().String("kind", "document", "Source kind: conversation, document, webpage, or email")

	RootCmd.AddCommand(cmd)
}

func runSources(cmd *cobra.Command, args []string) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind := model.SourceKind(kindFlag)
	if !model.ValidKinds[kind] {
		exitErr("sources", fmt.Errorf("invalid kind %q", kindFlag))
	}

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	sources, err := s.ListSources(cmd.Context(), kind)
	if err != nil {
		exitErr("list sources", err)
	}
	if len(sources) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(sources, "", "  ")
	fmt.Println(string(b))
}

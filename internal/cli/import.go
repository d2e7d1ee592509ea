package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/chunker"
	"github.com/mnemo-ai/mnemo/internal/importer"
	"github.com/mnemo-ai/mnemo/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import documents into memory",
		Long:  "Extract, chunk, and embed plain-text documents. Re-importing the same file replaces its chunks.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().String("kind", "document", "Source kind: document, webpage, or email")
	cmd.Flags().String("name", "", "Display name (default: file name)")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	name, _ := cmd.Flags().GetString("name")

	kind := model.SourceKind(kindFlag)
	if !model.ValidKinds[kind] || kind == model.KindConversation {
		exitErr("import", fmt.Errorf("invalid kind %q", kindFlag))
	}

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	imp := importer.New(s, newEmbedder(cfg), chunker.Options{
		TargetSize: cfg.ChunkTarget,
		Overlap:    cfg.ChunkOverlap,
	})
	var extractor importer.Extractor = importer.PlainText{}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			exitErr("open file", err)
		}
		format := strings.TrimPrefix(filepath.Ext(path), ".")
		text, err := extractor.Extract(cmd.Context(), f, format)
		f.Close()
		if err != nil {
			exitErr("extract", err)
		}

		displayName := name
		if displayName == "" || len(args) > 1 {
			displayName = filepath.Base(path)
		}
		src, err := imp.ImportText(cmd.Context(), kind, displayName, path, text)
		if err != nil {
			exitErr("import", err)
		}
		fmt.Printf(`{"ok":true,"source":%q,"chunks":%d}`+"\n", src.ID, src.ChunkCount)
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store statistics and health",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

type statusReport struct {
	DBPath      string                `json:"db_path"`
	DBSizeBytes int64                 `json:"db_size_bytes"`
	Healthy     bool                  `json:"healthy"`
	Stats       *store.AggregateStats `json:"stats"`
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	stats, err := s.AggregateStats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	report := statusReport{
		DBPath:  cfg.DBPath,
		Healthy: s.Healthy(cmd.Context()),
		Stats:   stats,
	}
	if info, err := os.Stat(cfg.DBPath); err == nil {
		report.DBSizeBytes = info.Size()
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Destroy all stored memory",
		Long:  "Delete the database and its journal files, then reopen a fresh empty store. Irreversible.",
		Run:   runReset,
	}

	cmd.Flags().Bool("force", false, "Skip confirmation")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	if !force {
		exitErr("reset", fmt.Errorf("refusing to destroy all memory without --force"))
	}

	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	results, err := s.Reset(cmd.Context())
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to delete %s: %v\n", r.Path, r.Err)
		}
	}
	if err != nil {
		exitErr("reset", err)
	}

	fmt.Println(`{"ok":true}`)
}

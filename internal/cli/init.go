package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/baseline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter data.json to the baseline path",
		Args:  cobra.NoArgs,
		Run:   runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	if strings.Contains(cfg.Baseline, "://") {
		exitErr("init", fmt.Errorf("baseline %s is a URL; init needs a file path", cfg.Baseline))
	}
	if err := baseline.WriteStarter(cfg.Baseline, force); err != nil {
		exitErr("init", err)
	}
	abs, _ := filepath.Abs(cfg.Baseline)
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"file":%q}`+"\n", abs)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all saved edits",
		Long:  "Delete every saved version of the override slot. The baseline is used from then on.",
		Args:  cobra.NoArgs,
		Run:   runReset,
	}

	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	if !yes && !confirm(cmd, fmt.Sprintf("Discard all saved edits in slot %s?", cfg.Slot)) {
		fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
		return
	}

	n, err := sess.Reset(cmd.Context())
	if err != nil {
		exitErr("reset", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"slot":%q,"removed":%d}`+"\n", cfg.Slot, n)
}

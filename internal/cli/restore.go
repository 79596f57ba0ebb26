package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "restore <version>",
		Short: "Make an earlier saved version current again",
		Args:  cobra.ExactArgs(1),
		Run:   runRestore,
	}

	RootCmd.AddCommand(cmd)
}

func runRestore(cmd *cobra.Command, args []string) {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		exitErr("restore", fmt.Errorf("version %q is not a number", args[0]))
	}

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	snap, err := sess.Restore(cmd.Context(), version)
	if err != nil {
		exitErr("restore", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"from":%d,"version":%d}`+"\n", version, snap.Version)
}

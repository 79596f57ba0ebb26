package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <path> <index>",
		Short: "Remove a record from an item array and save",
		Args:  cobra.ExactArgs(2),
		Run:   runRm,
	}

	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	p := parsePath(args[0])
	index, err := strconv.Atoi(args[1])
	if err != nil {
		exitErr("rm", fmt.Errorf("index %q is not a number", args[1]))
	}

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	if _, err := sess.Get(p.Index(index)); err != nil {
		exitErr("rm", err)
	}
	if !yes && !confirm(cmd, fmt.Sprintf("Remove %s?", p.Index(index))) {
		fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
		return
	}

	if err := sess.RemoveItem(p, index); err != nil {
		exitErr("rm", err)
	}
	snap, err := sess.Save(cmd.Context())
	if err != nil {
		exitErr("save", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"path":%q,"index":%d,"version":%d}`+"\n", p.String(), index, snap.Version)
}

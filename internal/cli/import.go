package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Save a document as the new override",
		Long:  "Save a document (stdin or file) as the new override. Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitErr("read input", err)
	}

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	snap, err := sess.Import(cmd.Context(), data)
	if err != nil {
		exitErr("import", err)
	}

	printJSON(cmd, map[string]any{"ok": true, "version": snap.Version, "bytes": snap.Size})
}

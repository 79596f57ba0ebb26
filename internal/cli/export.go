package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the effective document as data.json",
		Long:  "Write the effective document, pretty-printed, so it can be shipped as the new baseline. Use -o - for stdout.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	cmd.Flags().StringP("output", "o", "data.json", "Output file, or - for stdout")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	if output == "-" {
		if err := sess.Export(cmd.OutOrStdout()); err != nil {
			exitErr("export", err)
		}
		return
	}

	if err := exportFile(sess.ExportBytes, output, force); err != nil {
		exitErr("export", err)
	}
	abs, _ := filepath.Abs(output)
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"file":%q}`+"\n", abs)
}

// exportFile writes the export to path through a temp file and rename.
func exportFile(export func() ([]byte, error), path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s exists (use --force to overwrite)", path)
		}
	}
	data, err := export()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

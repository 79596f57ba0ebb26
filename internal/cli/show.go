package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/content"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print a value of the effective document",
		Long:  "Print the value at a dotted path such as en.projects.items.0.title. Without a path the whole document is printed.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runShow,
	}

	cmd.Flags().Bool("validate", false, "Print advisory issues instead of a value")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	validate, _ := cmd.Flags().GetBool("validate")

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	if validate {
		issues := sess.Document().Validate()
		if issues == nil {
			issues = []content.Issue{}
		}
		printJSON(cmd, issues)
		return
	}

	var p content.Path
	if len(args) > 0 {
		p = parsePath(args[0])
	}
	v, err := sess.Get(p)
	if err != nil {
		exitErr("show", err)
	}
	printJSON(cmd, v)
}

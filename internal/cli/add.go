package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/content"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Append a default record to an item array and save",
		Long: "Append a fresh default record to the array at path, e.g. en.projects.items. " +
			"The record kind is inferred from the path unless --kind is given.",
		Args: cobra.ExactArgs(1),
		Run:  runAdd,
	}

	cmd.Flags().StringP("kind", "k", "", "Record kind: experience, education, projects, services, skills-item, skills-category")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	p := parsePath(args[0])

	kind, err := resolveKind(p, kindStr)
	if err != nil {
		exitErr("add", err)
	}

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	idx, err := sess.AddItem(p, kind)
	if err != nil {
		exitErr("add", err)
	}
	item, _ := sess.Get(p.Index(idx))
	snap, err := sess.Save(cmd.Context())
	if err != nil {
		exitErr("save", err)
	}

	printJSON(cmd, map[string]any{
		"ok":      true,
		"path":    p.Index(idx).String(),
		"kind":    kind,
		"item":    item,
		"version": snap.Version,
	})
}

func resolveKind(p content.Path, s string) (content.ItemKind, error) {
	if s != "" {
		return content.ParseKind(s)
	}
	return content.InferKind(p)
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/content"
	"github.com/rcliao/folio/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "langs",
		Short: "List languages with record counts",
		Args:  cobra.NoArgs,
		Run:   runLangs,
	}

	RootCmd.AddCommand(cmd)
}

func runLangs(cmd *cobra.Command, args []string) {
	sess, closeFn := mustSession(cmd)
	defer closeFn()

	out, err := summarize(sess.Document())
	if err != nil {
		exitErr("langs", err)
	}
	printJSON(cmd, out)
}

func summarize(doc *content.Document) ([]model.LanguageSummary, error) {
	out := []model.LanguageSummary{}
	for _, code := range doc.Languages() {
		lang, err := model.Decode[model.Language](doc.Root()[code])
		if err != nil {
			return nil, err
		}
		out = append(out, model.Summarize(code, lang))
	}
	return out, nil
}

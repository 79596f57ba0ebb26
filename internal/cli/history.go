package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/model"
	"github.com/rcliao/folio/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved versions of the override",
		Args:  cobra.NoArgs,
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("versions-only", false, "Only output version numbers")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	versionsOnly, _ := cmd.Flags().GetBool("versions-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := s.History(cmd.Context(), store.HistoryParams{Slot: cfg.Slot, Limit: limit})
	if err != nil {
		exitErr("history", err)
	}

	if versionsOnly {
		for _, sn := range snaps {
			fmt.Fprintln(cmd.OutOrStdout(), sn.Version)
		}
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	printJSON(cmd, snaps)
}

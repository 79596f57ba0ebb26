package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/folio/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics and the active settings",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	*store.Stats
	ActiveSlot string `json:"active_slot"`
	Baseline   string `json:"baseline"`
	Merge      string `json:"merge"`
	ConfigFile string `json:"config_file,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	if stats.Slots == nil {
		stats.Slots = []store.SlotStats{}
	}

	printJSON(cmd, statsOutput{
		Stats:      stats,
		ActiveSlot: cfg.Slot,
		Baseline:   cfg.Baseline,
		Merge:      cfg.Merge,
		ConfigFile: cfg.File,
	})
}

// Package cli implements the folio CLI commands.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/folio/internal/baseline"
	"github.com/rcliao/folio/internal/config"
	"github.com/rcliao/folio/internal/content"
	"github.com/rcliao/folio/internal/logging"
	"github.com/rcliao/folio/internal/notify"
	"github.com/rcliao/folio/internal/session"
	"github.com/rcliao/folio/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Edit and serve a portfolio content document",
	Long: "Folio loads a baseline data.json, overlays your saved edits from a local " +
		"SQLite slot and lets you edit, export and serve the result.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger.Debug("config loaded",
			zap.String("file", cfg.File),
			zap.String("baseline", cfg.Baseline),
			zap.String("db", cfg.DB),
			zap.String("slot", cfg.Slot),
			zap.String("merge", cfg.Merge))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./folio.yaml)")
	pf.StringP("baseline", "b", config.DefaultBaseline, "Baseline document path or http(s) URL")
	pf.StringP("db", "d", "", "Database path (default: ~/.folio/folio.db)")
	pf.String("slot", config.DefaultSlot, "Override slot name")
	pf.String("channel", config.DefaultChannel, "Update channel name")
	pf.String("merge", "shallow", "Merge policy: shallow or deep")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolP("verbose", "v", false, "Shorthand for --log-level debug")
	pf.Duration("fetch-timeout", config.DefaultFetchTimeout, "Timeout for fetching an http(s) baseline")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB)
}

// openSession opens the store and update channel and loads the effective
// document. The returned func closes the store.
func openSession(cmd *cobra.Command) (*session.Session, func(), error) {
	policy, err := cfg.MergePolicy()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	ch, err := notify.NewFileChannel(cfg.SignalDir(), cfg.Channel, notify.WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	sess, err := session.New(session.Options{
		Source:  baseline.Open(cfg.Baseline, cfg.FetchTimeout),
		Store:   st,
		Slot:    cfg.Slot,
		Channel: ch,
		Policy:  policy,
		Logger:  logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := sess.Load(cmd.Context()); err != nil {
		st.Close()
		return nil, nil, err
	}
	if perr := sess.OverrideErr(); perr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (using baseline only)\n", perr)
	}
	return sess, func() { st.Close() }, nil
}

func mustSession(cmd *cobra.Command) (*session.Session, func()) {
	sess, closeFn, err := openSession(cmd)
	if err != nil {
		exitErr(describeOpenErr(err))
	}
	return sess, closeFn
}

// describeOpenErr names a baseline or override load failure for the user.
func describeOpenErr(err error) (string, error) {
	var lerr *session.LoadError
	if errors.As(err, &lerr) {
		return "could not load portfolio content from " + lerr.Location, lerr.Err
	}
	return "open session", err
}

func parsePath(arg string) content.Path {
	p, err := content.ParsePath(arg)
	if err != nil {
		exitErr("path", err)
	}
	return p
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/folio/internal/content"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("baseline", "", "")
	fs.String("db", "", "")
	fs.String("slot", "", "")
	fs.String("merge", "", "")
	fs.String("log-level", "", "")
	fs.Bool("verbose", false, "")
	fs.Duration("fetch-timeout", 0, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseline, cfg.Baseline)
	assert.Equal(t, DefaultSlot, cfg.Slot)
	assert.Equal(t, DefaultChannel, cfg.Channel)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, DefaultDBPath(), cfg.DB)
	assert.Empty(t, cfg.File)

	policy, err := cfg.MergePolicy()
	require.NoError(t, err)
	assert.Equal(t, content.ShallowOverlay, policy)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := "baseline: site/data.json\nslot: fromfile\nmerge: deep\nfetch_timeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "folio.yaml"), []byte(yaml), 0o644))

	t.Setenv("FOLIO_SLOT", "fromenv")
	t.Setenv("FOLIO_LOG_LEVEL", "warn")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--log-level", "error", "--db", "~/x/folio.db"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "folio.yaml", cfg.File)
	assert.Equal(t, "site/data.json", cfg.Baseline, "file beats defaults")
	assert.Equal(t, "fromenv", cfg.Slot, "env beats file")
	assert.Equal(t, "error", cfg.LogLevel, "flag beats env")
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "x", "folio.db"), cfg.DB)
	assert.Equal(t, filepath.Join(home, "x"), cfg.SignalDir())

	policy, err := cfg.MergePolicy()
	require.NoError(t, err)
	assert.Equal(t, content.DeepMerge, policy)
}

func TestLoadUnchangedFlagsIgnored(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FOLIO_SLOT", "fromenv")

	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Slot)
}

func TestLoadVerbose(t *testing.T) {
	chdir(t, t.TempDir())

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--verbose"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("channel: other\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Channel)
	assert.Equal(t, path, cfg.File)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("FOLIO_MERGE", "sideways")
	_, err := Load("", nil)
	assert.Error(t, err)
}

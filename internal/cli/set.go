package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "set <path> [value]",
		Short: "Set a value and save",
		Long:  "Set the value at a dotted path and save the document. The value can be a positional arg or piped via stdin.",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runSet,
	}

	cmd.Flags().Bool("json", false, "Parse the value as JSON instead of a string")

	RootCmd.AddCommand(cmd)
}

func runSet(cmd *cobra.Command, args []string) {
	asJSON, _ := cmd.Flags().GetBool("json")
	p := parsePath(args[0])

	var raw string
	if len(args) > 1 {
		raw = args[1]
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				exitErr("read stdin", err)
			}
			raw = strings.TrimRight(string(b), "\n")
		}
	}

	value, err := parseValue(raw, asJSON)
	if err != nil {
		exitErr("set", err)
	}

	sess, closeFn := mustSession(cmd)
	defer closeFn()

	if err := sess.Set(p, value); err != nil {
		exitErr("set", err)
	}
	snap, err := sess.Save(cmd.Context())
	if err != nil {
		exitErr("save", err)
	}

	printJSON(cmd, map[string]any{"ok": true, "path": p.String(), "version": snap.Version})
}

func parseValue(raw string, asJSON bool) (any, error) {
	if !asJSON {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("value is not valid JSON: %w", err)
	}
	return v, nil
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/folio/internal/content"
	"github.com/rcliao/folio/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the document interactively",
		Long:  "Open an interactive editing session. Edits stay in memory until you type save.",
		Args:  cobra.NoArgs,
		Run:   runEdit,
	}

	RootCmd.AddCommand(cmd)
}

func runEdit(cmd *cobra.Command, args []string) {
	sess, closeFn := mustSession(cmd)
	defer closeFn()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "folio> ",
		HistoryFile:     filepath.Join(cfg.SignalDir(), "edit_history"),
		AutoComplete:    editCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		exitErr("edit", fmt.Errorf("failed to initialize REPL: %w", err))
	}
	defer func() { _ = rl.Close() }()

	r := &repl{ctx: cmd.Context(), sess: sess, out: rl.Stdout()}
	r.confirm = func(prompt string) bool {
		rl.SetPrompt(prompt + " [y/N] ")
		defer rl.SetPrompt("folio> ")
		ans, err := rl.Readline()
		return err == nil && isYes(ans)
	}

	cancel, err := sess.OnExternalUpdate(r.externalUpdate)
	if err != nil {
		logger.Warn("live updates disabled", zap.Error(err))
	} else {
		defer cancel()
	}

	fmt.Fprintf(r.out, "folio editor (slot %s, merge %s)\n", cfg.Slot, sess.Policy())
	fmt.Fprintln(r.out, "Type help for commands, quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if r.exec(line) {
			break
		}
	}
}

func editCompleter() *readline.PrefixCompleter {
	kinds := make([]readline.PrefixCompleterInterface, 0, len(content.Kinds()))
	for _, k := range content.Kinds() {
		kinds = append(kinds, readline.PcItem(string(k)))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("get"),
		readline.PcItem("set"),
		readline.PcItem("setjson"),
		readline.PcItem("add"),
		readline.PcItem("rm"),
		readline.PcItem("save"),
		readline.PcItem("reload"),
		readline.PcItem("reset"),
		readline.PcItem("export"),
		readline.PcItem("langs"),
		readline.PcItem("validate"),
		readline.PcItem("kinds", kinds...),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// repl executes editor commands against one session.
type repl struct {
	ctx     context.Context
	sess    *session.Session
	out     io.Writer
	confirm func(prompt string) bool
	pending atomic.Bool
}

// externalUpdate runs on the channel goroutine when another session saves.
func (r *repl) externalUpdate() {
	ok, err := r.sess.LoadIfClean(r.ctx)
	switch {
	case err != nil:
		fmt.Fprintf(r.out, "\nreload failed: %v\n", err)
	case !ok:
		r.pending.Store(true)
		fmt.Fprintln(r.out, "\nanother session saved; type reload to pick it up (unsaved edits will be lost)")
	default:
		fmt.Fprintln(r.out, "\nreloaded: another session saved")
	}
}

// exec runs one command line and reports whether the session should end.
func (r *repl) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	ctx := r.ctx
	name, rest := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		if r.sess.Dirty() && !r.confirm("Discard unsaved edits?") {
			return false
		}
		return true

	case "help":
		r.help()

	case "get":
		var p content.Path
		if len(rest) > 0 {
			if p = r.path(rest[0]); p == nil {
				return false
			}
		}
		v, err := r.sess.Get(p)
		if err != nil {
			r.fail(err)
			return false
		}
		r.printJSON(v)

	case "set", "setjson":
		if len(rest) < 1 {
			fmt.Fprintf(r.out, "usage: %s <path> <value>\n", name)
			return false
		}
		p := r.path(rest[0])
		if p == nil {
			return false
		}
		_, after := cutField(line)
		_, raw := cutField(after)
		v, err := parseValue(raw, name == "setjson")
		if err != nil {
			r.fail(err)
			return false
		}
		if err := r.sess.Set(p, v); err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintln(r.out, "ok")

	case "add":
		if len(rest) < 1 {
			fmt.Fprintln(r.out, "usage: add <path> [kind]")
			return false
		}
		p := r.path(rest[0])
		if p == nil {
			return false
		}
		kindStr := ""
		if len(rest) > 1 {
			kindStr = rest[1]
		}
		kind, err := resolveKind(p, kindStr)
		if err != nil {
			r.fail(err)
			return false
		}
		idx, err := r.sess.AddItem(p, kind)
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "added %s\n", p.Index(idx))

	case "rm":
		if len(rest) < 2 {
			fmt.Fprintln(r.out, "usage: rm <path> <index>")
			return false
		}
		p := r.path(rest[0])
		if p == nil {
			return false
		}
		idx, err := strconv.Atoi(rest[1])
		if err != nil {
			r.fail(fmt.Errorf("index %q is not a number", rest[1]))
			return false
		}
		if _, err := r.sess.Get(p.Index(idx)); err != nil {
			r.fail(err)
			return false
		}
		if !r.confirm(fmt.Sprintf("Remove %s?", p.Index(idx))) {
			fmt.Fprintln(r.out, "aborted")
			return false
		}
		if err := r.sess.RemoveItem(p, idx); err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "removed %s\n", p.Index(idx))

	case "save":
		snap, err := r.sess.Save(ctx)
		if err != nil {
			r.fail(err)
			return false
		}
		r.pending.Store(false)
		fmt.Fprintf(r.out, "saved version %d\n", snap.Version)

	case "reload":
		if r.sess.Dirty() && !r.confirm("Discard unsaved edits?") {
			return false
		}
		if err := r.sess.Load(ctx); err != nil {
			r.fail(err)
			return false
		}
		r.pending.Store(false)
		fmt.Fprintf(r.out, "reloaded version %d\n", r.sess.Version())

	case "reset":
		if !r.confirm("Discard all saved edits?") {
			fmt.Fprintln(r.out, "aborted")
			return false
		}
		n, err := r.sess.Reset(ctx)
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "removed %d saved versions\n", n)

	case "export":
		path := "data.json"
		if len(rest) > 0 {
			path = rest[0]
		}
		if path == "-" {
			if err := r.sess.Export(r.out); err != nil {
				r.fail(err)
			}
			return false
		}
		if err := exportFile(r.sess.ExportBytes, path, true); err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "wrote %s\n", path)

	case "langs":
		out, err := summarize(r.sess.Document())
		if err != nil {
			r.fail(err)
			return false
		}
		r.printJSON(out)

	case "validate":
		issues := r.sess.Document().Validate()
		if len(issues) == 0 {
			fmt.Fprintln(r.out, "no issues")
			return false
		}
		for _, is := range issues {
			fmt.Fprintf(r.out, "%s: %s\n", is.Path, is.Message)
		}

	case "kinds":
		for _, k := range content.Kinds() {
			fmt.Fprintln(r.out, k)
		}

	default:
		fmt.Fprintf(r.out, "unknown command %q (type help)\n", name)
	}
	return false
}

func (r *repl) path(arg string) content.Path {
	p, err := content.ParsePath(arg)
	if err != nil {
		r.fail(err)
		return nil
	}
	return p
}

func (r *repl) printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintln(r.out, string(b))
}

func (r *repl) fail(err error) {
	fmt.Fprintf(r.out, "error: %v\n", err)
}

func (r *repl) help() {
	fmt.Fprint(r.out, `Commands:
  get [path]               print a value (whole document without a path)
  set <path> <text>        set a string value
  setjson <path> <json>    set a JSON value (number, object, array...)
  add <path> [kind]        append a default record to an item array
  rm <path> <index>        remove a record (asks first)
  save                     persist edits and notify other sessions
  reload                   reload baseline and saved edits
  reset                    delete all saved edits (asks first)
  export [file|-]          write the document (default data.json)
  langs                    list languages with record counts
  validate                 report duplicate ids and missing sections
  kinds                    list record kinds
  quit                     leave (asks if there are unsaved edits)
Paths are dotted, e.g. en.projects.items.0.title
`)
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// cutField splits off the first whitespace-separated field and returns the
// remainder with surrounding whitespace trimmed.
func cutField(s string) (field, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

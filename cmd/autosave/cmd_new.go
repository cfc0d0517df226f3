package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dshills/autosave/internal/document"
	"github.com/dshills/autosave/internal/hook"
	"github.com/dshills/autosave/internal/scratch"
)

// errNoEditor is returned by --edit when no editor is configured.
var errNoEditor = errors.New("no editor: set $VISUAL or $EDITOR, or pass --editor")

// editorRunner runs editor on path and waits for it to exit.
type editorRunner func(ctx context.Context, editor, path string, stdout, stderr io.Writer) error

// runEditor is replaced in tests.
var runEditor editorRunner = execEditor

type newOptions struct {
	edit      bool
	editor    string
	dir       string
	extension string
}

func newNewCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var opts newOptions
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a timestamped scratch file",
		Long: `Create a timestamped scratch file for a fresh, empty buffer and print
its path.

With --edit the file is opened in $VISUAL or $EDITOR. When the editor
exits the file is deleted again if it was left empty or holds only the
inserted timestamp.`,
		Example: `  autosave new
  autosave new --edit
  autosave new --dir /tmp/notes --ext txt --edit --editor "code --wait"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if doNew(cmd.Context(), root, opts, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.edit, "edit", "e", false, "open the file in an editor and clean up afterwards")
	cmd.Flags().StringVar(&opts.editor, "editor", "", "editor command (default: $VISUAL, then $EDITOR)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "save directory (overrides save_directory)")
	cmd.Flags().StringVar(&opts.extension, "ext", "", "file extension (overrides default_extension)")
	return cmd
}

// doNew creates the scratch file and, with --edit, runs the editor and the
// close-time cleanup. It returns the exit code.
func doNew(ctx context.Context, root *rootOptions, opts newOptions, stdout, stderr io.Writer) int {
	provider, err := root.loadSettings()
	if err != nil {
		fmt.Fprintf(stderr, "autosave new: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defer provider.Close()

	settings := provider.Current()
	cfg := settings.Scratch()
	if opts.dir != "" {
		cfg.SaveDirectory = opts.dir
	}
	if opts.extension != "" {
		cfg.DefaultExtension = strings.TrimPrefix(opts.extension, ".")
	}

	editor := ""
	if opts.edit {
		editor = resolveEditor(opts.editor)
		if editor == "" {
			fmt.Fprintf(stderr, "autosave new: %v\n", errNoEditor) //nolint:errcheck // best-effort stderr
			return 1
		}
	}

	logger := root.logger(settings, stderr)
	fsys := afero.NewOsFs()
	manager := scratch.New(fsys,
		scratch.WithLogger(logger),
		scratch.WithDebug(root.debug || settings.Debug),
		scratch.WithDirLock(true),
	)

	failed := false
	listener := hook.NewListener(manager, hook.StaticSettings(cfg),
		hook.WithLogger(logger),
		hook.WithNotifier(hook.NotifierFunc(func(msg string) {
			failed = true
			fmt.Fprintln(stderr, msg) //nolint:errcheck // best-effort stderr
		})),
	)

	doc := document.New(fsys)
	listener.OnNew(doc)
	if failed || doc.Path() == "" {
		return 1
	}
	path := doc.Path()
	fmt.Fprintln(stdout, path) //nolint:errcheck // best-effort stdout

	if !opts.edit {
		return 0
	}

	if err := runEditor(ctx, editor, path, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "autosave new: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if err := doc.Reload(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Removed or moved away by the editor; nothing to clean up.
			manager.Forget(path)
			return 0
		}
		fmt.Fprintf(stderr, "autosave new: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	listener.OnPreClose(doc)
	if failed {
		return 1
	}
	if exists, _ := afero.Exists(fsys, path); !exists {
		fmt.Fprintf(stdout, "removed unedited %s\n", path) //nolint:errcheck // best-effort stdout
	}
	return 0
}

// resolveEditor returns flag, $VISUAL, or $EDITOR, whichever is set first.
func resolveEditor(flag string) string {
	for _, e := range []string{flag, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if e = strings.TrimSpace(e); e != "" {
			return e
		}
	}
	return ""
}

// execEditor runs editor with path appended to its arguments, attached to
// the terminal.
func execEditor(ctx context.Context, editor, path string, stdout, stderr io.Writer) error {
	fields := strings.Fields(editor)
	args := append(fields[1:], path)
	c := exec.CommandContext(ctx, fields[0], args...) //nolint:gosec // editor is chosen by the user
	c.Stdin = os.Stdin
	c.Stdout = stdout
	c.Stderr = stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("running %s: %w", fields[0], err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/autosave/internal/config"
	"github.com/dshills/autosave/internal/config/notify"
)

func newConfigCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect autosave settings",
		Long: `Inspect the effective autosave settings.

Settings come from built-in defaults, the settings file, and AUTOSAVE_*
environment variables, in increasing order of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newConfigShowCmd(root, stdout, stderr),
		newConfigPathCmd(root, stdout, stderr),
		newConfigWatchCmd(root, stdout, stderr),
	)
	return cmd
}

func newConfigShowCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as TOML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			provider, err := root.loadSettings()
			if err != nil {
				fmt.Fprintf(stderr, "autosave config show: %v\n", err) //nolint:errcheck // best-effort stderr
				return errExit
			}
			defer provider.Close()

			if err := writeSettings(stdout, provider.Current()); err != nil {
				fmt.Fprintf(stderr, "autosave config show: %v\n", err) //nolint:errcheck // best-effort stderr
				return errExit
			}
			return nil
		},
	}
}

func newConfigPathCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := root.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					fmt.Fprintf(stderr, "autosave config path: %v\n", err) //nolint:errcheck // best-effort stderr
					return errExit
				}
			}
			fmt.Fprintln(stdout, path) //nolint:errcheck // best-effort stdout
			return nil
		},
	}
}

func newConfigWatchCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the settings again whenever the settings file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if doConfigWatch(ctx, root, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
}

// doConfigWatch prints the settings, then reprints them after every reload
// until ctx is done. It returns the exit code.
func doConfigWatch(ctx context.Context, root *rootOptions, stdout, stderr io.Writer) int {
	// Built before loading so reload errors are reported at the default level.
	logger := root.logger(config.Defaults(), stderr)
	provider, err := root.loadSettings(config.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "autosave config watch: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defer provider.Close()

	settings := provider.Current()
	fmt.Fprintf(stdout, "# %s\n", provider.Path()) //nolint:errcheck // best-effort stdout
	if err := writeSettings(stdout, settings); err != nil {
		fmt.Fprintf(stderr, "autosave config watch: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	provider.Subscribe(func(c notify.Change) {
		switch c.Type {
		case notify.ChangeSet:
			fmt.Fprintf(stdout, "# %s: %v -> %v\n", c.Key, c.OldValue, c.NewValue) //nolint:errcheck // best-effort stdout
		case notify.ChangeReload:
			if err := writeSettings(stdout, provider.Current()); err != nil {
				logger.Err(err, "printing settings")
			}
		}
	})

	if err := provider.Watch(ctx); err != nil {
		fmt.Fprintf(stderr, "autosave config watch: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	return 0
}

func writeSettings(w io.Writer, s config.Settings) error {
	data, err := s.TOML()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

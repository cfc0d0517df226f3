// autosave creates timestamped scratch files for new editor buffers and
// removes them again when they are closed unedited.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/autosave/internal/config"
	"github.com/dshills/autosave/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is returned by RunE functions to signal a non-zero exit after the
// command has written its own error to stderr.
var errExit = errors.New("exit")

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	debug      bool
	logLevel   string
}

// run executes the CLI with args, writing output to stdout and errors to
// stderr. It returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "autosave: %v\n", err) //nolint:errcheck // best-effort stderr
		}
		return 1
	}
	return 0
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "autosave",
		Short:         "Timestamped scratch files for new editor buffers",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"settings file (default: $XDG_CONFIG_HOME/autosave/settings.toml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every lifecycle step")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"log level: debug, info, warn, or error (default from settings)")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newNewCmd(opts, stdout, stderr),
		newConfigCmd(opts, stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}

// loadSettings creates a provider for the --config file and loads it.
func (o *rootOptions) loadSettings(extra ...config.Option) (*config.Provider, error) {
	popts := extra
	if o.configPath != "" {
		popts = append(popts, config.WithPath(o.configPath))
	}
	p := config.NewProvider(popts...)
	if err := p.Load(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// logger builds the logger for s; flags override settings.
func (o *rootOptions) logger(s config.Settings, stderr io.Writer) *logging.Logger {
	level := s.Level()
	if o.logLevel != "" {
		level = logging.ParseLevel(o.logLevel)
	}
	if o.debug {
		level = logging.LevelDebug
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Output = stderr
	return logging.New(cfg)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/ui"
)

// IO wires the CLI to its streams; zero fields fall back to the process's.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// exitError carries a non-usage exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failed(err error) error { return &exitError{code: 1, err: err} }

func usage(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// flags are the root's persistent flags.
type flags struct {
	configPath string
	baseURL    string
	theme      string
	verbose    bool
	forceColor bool
	noColor    bool
}

// app is built once per invocation in the root's PersistentPreRunE.
type app struct {
	ctx   context.Context
	cfg   *config.Config
	theme ui.Theme
	log   *zap.Logger
	io    IO
	flags *flags
}

// service builds the backend client. Interactive sessions log to a file;
// one-shot commands log to stderr.
func (a *app) service(interactive bool) (*service.Client, error) {
	opt := logging.Options{Level: a.cfg.Logging.Level, Verbose: a.flags.verbose}
	switch {
	case interactive:
		opt.Path = a.cfg.LogPath()
	case a.cfg.Logging.File != "":
		opt.Path = a.cfg.Logging.File
	default:
		opt.Writer = a.io.Err
	}
	log, err := logging.New(opt)
	if err != nil {
		return nil, err
	}
	a.log = log

	timeout, err := a.cfg.Server.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	creds := a.cfg.Credentials()
	return service.New(service.Options{
		BaseURL:           a.cfg.Server.BaseURL,
		ListPath:          a.cfg.Server.ListPath,
		Timeout:           timeout,
		RequestsPerSecond: a.cfg.Server.RequestsPerSecond,
		Token:             creds.BearerToken,
		Logger:            log,
	}), nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	f := a.flags
	root := &cobra.Command{
		Use:   "todo",
		Short: "todo - a terminal client for your task list",
		Long: `todo shows today's tasks from the todo backend.

Run without arguments to open the interactive list.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return failed(err)
			}
			if f.baseURL != "" {
				cfg.Server.BaseURL = f.baseURL
			}
			if f.theme != "" {
				cfg.UI.Theme = f.theme
			}
			switch {
			case f.noColor:
				cfg.UI.Color = "never"
			case f.forceColor:
				cfg.UI.Color = "always"
			}
			ui.SetColorMode(cfg.UI.Color)
			a.cfg = cfg
			a.theme = ui.NewTheme(cfg.UI.Theme)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(a)
		},
	}
	root.SetIn(a.io.In)
	root.SetOut(a.io.Out)
	root.SetErr(a.io.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default ~/.tada/config.yaml)")
	pf.StringVar(&f.baseURL, "base-url", "", "backend base URL, e.g. http://127.0.0.1:4000/api")
	pf.StringVar(&f.theme, "theme", "", "theme: classic, neon, mono")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&f.forceColor, "color", false, "force colour output")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colour output")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newDoneCmd(a),
		newRemoveCmd(a),
		newAuthCmd(a),
	)
	return root
}

// Run executes the CLI and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, streams IO) int {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}

	a := &app{ctx: context.Background(), io: streams, flags: &flags{}}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}

	ui.Fail(streams.Err, err.Error())
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// flag, argument and unknown-command errors from cobra
	fmt.Fprintln(streams.Err)
	fmt.Fprint(streams.Err, root.UsageString())
	return 2
}

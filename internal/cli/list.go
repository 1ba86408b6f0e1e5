package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
	"github.com/Makepad-fr/tada/internal/tui"
)

func newListCmd(a *app) *cobra.Command {
	var plain, group bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tasks (interactive unless --plain)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				return runInteractive(a)
			}
			return runPlainList(a, group)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the list once instead of opening the TUI")
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done (with --plain)")
	return cmd
}

func runInteractive(a *app) error {
	svc, err := a.service(true)
	if err != nil {
		return failed(err)
	}
	m := tui.New(tui.Options{
		Service: svc,
		Cache:   query.New[[]model.Task](a.log),
		Theme:   a.theme,
		Logger:  a.log,
		Context: a.ctx,
	})
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(a.ctx),
		tea.WithInput(a.io.In),
		tea.WithOutput(a.io.Out),
	)
	if _, err := p.Run(); err != nil {
		return failed(fmt.Errorf("tui: %w", err))
	}
	return nil
}

func runPlainList(a *app, group bool) error {
	svc, err := a.service(false)
	if err != nil {
		return failed(err)
	}
	tasks, err := svc.List(a.ctx)
	if err != nil {
		a.log.Error("load tasks failed", zap.Error(err))
		return failed(fmt.Errorf("load: %w", err))
	}
	fmt.Fprintln(a.io.Out, tui.Static(a.theme, tui.State{Tasks: tasks}, group, a.log))
	return nil
}

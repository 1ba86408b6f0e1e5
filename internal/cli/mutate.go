package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <body...>",
		Short:   "Add a new task (body can be multiple words)",
		Example: `  todo add "Buy milk"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.TrimSpace(strings.Join(args, " "))
			if body == "" {
				return usage("usage: todo add <body...>")
			}
			svc, err := a.service(false)
			if err != nil {
				return failed(err)
			}
			if _, err := svc.Create(a.ctx, body); err != nil {
				return failed(fmt.Errorf("add: %w", err))
			}
			ui.OK(a.io.Out, "added")
			return nil
		},
	}
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "done <index>",
		Short:   "Complete the task at 1-based index",
		Example: "  todo done 2",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, t, err := a.resolveIndex("done", args[0])
			if err != nil {
				return err
			}
			if t.Completed {
				ui.OK(a.io.Out, "already completed")
				return nil
			}
			if err := svc.Complete(a.ctx, t.ID); err != nil {
				return failed(fmt.Errorf("done: %w", err))
			}
			ui.OK(a.io.Out, "completed")
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index>",
		Short:   "Remove the task at 1-based index",
		Example: "  todo rm 3",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, t, err := a.resolveIndex("rm", args[0])
			if err != nil {
				return err
			}
			if err := svc.Delete(a.ctx, t.ID); err != nil {
				return failed(fmt.Errorf("rm: %w", err))
			}
			ui.OK(a.io.Out, "removed")
			return nil
		},
	}
}

// resolveIndex maps a 1-based index from `todo ls --plain` onto a task. Rows
// are counted the way the list shows them, duplicates dropped.
func (a *app) resolveIndex(name, arg string) (*service.Client, model.Task, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, model.Task{}, usage("%s: not a number: %s", name, arg)
	}
	svc, err := a.service(false)
	if err != nil {
		return nil, model.Task{}, failed(err)
	}
	tasks, err := svc.List(a.ctx)
	if err != nil {
		return nil, model.Task{}, failed(fmt.Errorf("load: %w", err))
	}
	items := tui.ItemViews(tasks, a.log)
	if n < 1 || n > len(items) {
		ui.Hint(a.io.Err, "Hint: run `todo ls --plain` to see the list")
		return nil, model.Task{}, usage("index out of range: have %d, got %d", len(items), n)
	}
	return svc, items[n-1].Task, nil
}

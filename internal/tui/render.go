package tui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

const (
	heading      = "TODAY'S TASKS"
	loadingText  = "Loading tasks..."
	emptyText    = "All tasks completed! 🤞"
	gopher       = "ʕ◔ϖ◔ʔ"
	errorPrefix  = "could not load tasks: "
	progressSize = 28
)

// State is everything the task list renders from.
type State struct {
	// Loading is true while the first fetch of an activation is in flight
	// and nothing is held yet.
	Loading bool
	// Refreshing is a fetch in flight while tasks are already shown.
	Refreshing bool
	Tasks      []model.Task
	Err        error
}

// Sections says which parts of the view are drawn. The loading indicator is
// decided on its own, not as an alternative to the others.
type Sections struct {
	Loading bool
	Empty   bool
	List    bool
	Error   bool
}

func SectionsFor(s State) Sections {
	return Sections{
		Loading: s.Loading,
		Empty:   !s.Loading && len(s.Tasks) == 0,
		List:    len(s.Tasks) > 0,
		Error:   !s.Loading && s.Err != nil,
	}
}

type renderOpts struct {
	spinner  string
	items    []ItemView
	cursor   int
	group    bool
	numbered bool
}

func render(t ui.Theme, s State, o renderOpts) []string {
	sec := SectionsFor(s)

	title := t.Title.Render(heading)
	if s.Refreshing {
		title += " " + t.Muted.Render(o.spinner)
	}
	lines := []string{title}

	if sec.List {
		shown := make([]model.Task, len(o.items))
		for i, it := range o.items {
			shown[i] = it.Task
		}
		done, pending := model.Stats(shown)
		lines = append(lines,
			fmt.Sprintf("%s %d  %s %d  %s %d",
				t.Success.Render(t.SymDone), done,
				t.Pending.Render(t.SymPending), pending,
				t.Accent.Render("Total"), len(shown)),
			t.Muted.Render(ui.ProgressBar(done, done+pending, progressSize)),
		)
	}
	lines = append(lines, "")

	if sec.Error {
		lines = append(lines, t.Error.Render("✖ "+errorPrefix+s.Err.Error()), "")
	}
	if sec.Loading {
		lines = append(lines, o.spinner+" "+loadingText)
	}
	if sec.Empty {
		lines = append(lines, t.Muted.Render(emptyText), t.Accent.Render(gopher))
	}
	if sec.List {
		if o.group {
			lines = append(lines, groupLines(t, o.items)...)
		} else {
			for i, it := range o.items {
				line := it.Render(t, i == o.cursor)
				if o.numbered {
					line = t.Muted.Render(fmt.Sprintf("%2d.", i+1)) + line
				}
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func groupLines(t ui.Theme, items []ItemView) []string {
	var pend, done []ItemView
	for _, it := range items {
		if it.Task.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	section := func(name string, items []ItemView) []string {
		out := []string{t.Accent.Render(name)}
		if len(items) == 0 {
			return append(out, t.Muted.Render("(none)"))
		}
		for _, it := range items {
			out = append(out, it.Render(t, false))
		}
		return out
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

// Static renders a finished load as a framed panel, for non-interactive use.
func Static(t ui.Theme, s State, group bool, log *zap.Logger) string {
	if log == nil {
		log = zap.NewNop()
	}
	lines := render(t, s, renderOpts{items: ItemViews(s.Tasks, log), cursor: -1, group: group, numbered: true})
	return t.Panel(lines)
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }

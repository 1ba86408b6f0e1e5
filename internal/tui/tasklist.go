// Package tui is the interactive task list: it fetches the task collection
// when activated and shows a spinner, the empty state, or the tasks.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/ui"
)

// TasksKey is the cache key of the task collection.
const TasksKey = "tasks"

// TaskService is what the view needs from the backend.
type TaskService interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, body string) (model.Task, error)
	Complete(ctx context.Context, id model.ID) error
	Delete(ctx context.Context, id model.ID) error
}

type Options struct {
	Service TaskService
	Cache   *query.Cache[[]model.Task]
	Theme   ui.Theme
	Logger  *zap.Logger
	// Context bounds every request the view makes. Defaults to Background.
	Context context.Context
}

// loadedMsg carries a fetch result tagged with the activation that asked.
type loadedMsg struct {
	gen uint64
	res query.Result[[]model.Task]
}

type mutatedMsg struct {
	op  string
	err error
}

// Model is the task list view.
type Model struct {
	svc    TaskService
	cache  *query.Cache[[]model.Task]
	theme  ui.Theme
	log    *zap.Logger
	parent context.Context

	// activation
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	loading    bool
	refreshing bool
	tasks      []model.Task
	items      []ItemView
	err        error

	cursor  int
	spinner spinner.Model
	keys    keyMap
	help    help.Model

	// Inline add
	adding   bool
	input    textinput.Model
	inputErr string

	status string
}

// New builds the view and activates it; Init issues the first fetch.
func New(opt Options) Model {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	parent := opt.Context
	if parent == nil {
		parent = context.Background()
	}
	cache := opt.Cache
	if cache == nil {
		cache = query.New[[]model.Task](log)
	}

	sp := spinner.New()
	sp.Spinner = opt.Theme.Spinner
	sp.Style = opt.Theme.Accent

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "New task..."
	ti.CharLimit = 200

	m := Model{
		svc:     opt.Service,
		cache:   cache,
		theme:   opt.Theme,
		log:     log,
		parent:  parent,
		spinner: sp,
		keys:    defaultKeyMap(),
		help:    help.New(),
		input:   ti,
	}
	m, _ = m.Activate()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

// Activate starts a new activation: any in-flight fetch of the previous one
// is cancelled and its result will be ignored. Data held from earlier stays
// on screen until the new fetch lands.
func (m Model) Activate() (Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	m.ctx, m.cancel = context.WithCancel(m.parent)

	if m.tasks == nil {
		if res, ok := m.cache.Peek(TasksKey); ok {
			m.setTasks(res.Data)
		}
	}
	m.loading = m.tasks == nil
	m.refreshing = !m.loading
	return m, tea.Batch(m.spinner.Tick, m.fetch())
}

// Deactivate cancels the in-flight fetch; late results are dropped.
func (m Model) Deactivate() Model {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	m.loading = false
	m.refreshing = false
	return m
}

func (m Model) fetch() tea.Cmd {
	gen, ctx, cache, svc, log := m.gen, m.ctx, m.cache, m.svc, m.log
	return func() tea.Msg {
		res := cache.Fetch(ctx, TasksKey, svc.List)
		if res.Err != nil && ctx.Err() != nil {
			log.Debug("load abandoned", zap.Uint64("activation", gen), zap.Error(res.Err))
		} else if res.Err != nil {
			fields := []zap.Field{zap.Uint64("activation", gen), zap.Error(res.Err)}
			var apiErr *service.APIError
			if errors.As(res.Err, &apiErr) {
				fields = append(fields, zap.Int("status", apiErr.Status), zap.String("request_id", apiErr.RequestID))
			}
			log.Error("load tasks failed", fields...)
		}
		return loadedMsg{gen: gen, res: res}
	}
}

func (m Model) mutate(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.parent
	return func() tea.Msg {
		return mutatedMsg{op: op, err: fn(ctx)}
	}
}

func (m *Model) setTasks(tasks []model.Task) {
	m.tasks = tasks
	m.items = ItemViews(tasks, m.log)
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// State is the input of the render contract.
func (m Model) State() State {
	return State{Loading: m.loading, Refreshing: m.refreshing, Tasks: m.tasks, Err: m.err}
}

// Items are the rendered task views, keyed by task ID.
func (m Model) Items() []ItemView { return m.items }

func (m Model) selected() (ItemView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return ItemView{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.gen != m.gen || msg.res.Stale {
			m.log.Debug("dropping stale load", zap.Uint64("activation", msg.gen), zap.Uint64("current", m.gen))
			return m, nil
		}
		m.loading, m.refreshing = false, false
		if msg.res.OK() {
			m.err = nil
			m.setTasks(msg.res.Data)
		} else {
			m.err = msg.res.Err
		}
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			m.log.Error("task update failed", zap.String("op", msg.op), zap.Error(msg.err))
			m.status = m.theme.Error.Render("✖ " + msg.op + ": " + msg.err.Error())
			return m, nil
		}
		m.status = m.theme.Success.Render("✔ " + msg.op)
		m.cache.Invalidate(TasksKey)
		return m.Activate()

	case spinner.TickMsg:
		if !m.loading && !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		body := strings.TrimSpace(m.input.Value())
		if body == "" {
			m.inputErr = "Title cannot be empty"
			return m, nil
		}
		m.adding = false
		m.inputErr = ""
		m.input.SetValue("")
		m.input.Blur()
		svc := m.svc
		return m, m.mutate("added", func(ctx context.Context) error {
			_, err := svc.Create(ctx, body)
			return err
		})
	case "esc":
		m.adding = false
		m.inputErr = ""
		m.input.SetValue("")
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.Deactivate(), tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Complete):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		if it.Task.Completed {
			m.status = m.theme.Muted.Render("already completed")
			return m, nil
		}
		id, svc := it.Key, m.svc
		return m, m.mutate("completed", func(ctx context.Context) error { return svc.Complete(ctx, id) })

	case key.Matches(msg, m.keys.Delete):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		id, svc := it.Key, m.svc
		return m, m.mutate("deleted", func(ctx context.Context) error { return svc.Delete(ctx, id) })

	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.status = ""
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Refresh):
		m.status = ""
		return m.Activate()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) View() string {
	lines := render(m.theme, m.State(), renderOpts{
		spinner: m.spinner.View(),
		items:   m.items,
		cursor:  m.cursor,
	})

	content := joinLines(lines)
	if m.adding {
		title := "Add new task"
		if m.inputErr != "" {
			title += " " + m.theme.Error.Render(m.inputErr)
		}
		content += "\n\n" + m.theme.Frame(title+"\n"+m.input.View())
	}
	if m.status != "" {
		content += "\n\n" + m.status
	}
	content += "\n\n" + m.help.View(m.keys)
	return m.theme.Frame(content)
}

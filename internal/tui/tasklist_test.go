package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/ui"
)

type fakeService struct {
	mu        sync.Mutex
	listCalls int
	tasks     []model.Task
	listErr   error
	mutateErr error
	created   []string
	completed []model.ID
	deleted   []model.ID
	// gate, when set, holds every List call until it is closed or the
	// request context ends.
	gate chan struct{}
}

func (f *fakeService) List(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	f.listCalls++
	gate, tasks, err := f.gate, append([]model.Task(nil), f.tasks...), f.listErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (f *fakeService) Create(ctx context.Context, body string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return model.Task{}, f.mutateErr
	}
	f.created = append(f.created, body)
	return model.Task{ID: "new", Body: body}, nil
}

func (f *fakeService) Complete(ctx context.Context, id model.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeService) Delete(ctx context.Context, id model.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func newModel(t *testing.T, svc TaskService) Model {
	t.Helper()
	ui.SetColorMode("never")
	return New(Options{Service: svc, Theme: ui.NewTheme("mono"), Logger: zaptest.NewLogger(t)})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	require.True(t, ok)
	return mm, cmd
}

// messages runs cmd and flattens batches. Only use on commands that return
// without waiting on a timer.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, messages(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findMsg[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	for _, msg := range messages(cmd) {
		if m, ok := msg.(T); ok {
			return m
		}
	}
	var zero T
	t.Fatalf("no %T produced", zero)
	return zero
}

func loadedIn(t *testing.T, msgs []tea.Msg) loadedMsg {
	t.Helper()
	for _, msg := range msgs {
		if m, ok := msg.(loadedMsg); ok {
			return m
		}
	}
	t.Fatal("no loadedMsg produced")
	return loadedMsg{}
}

// load runs the view's pending fetch and applies the result.
func load(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	m, _ = update(t, m, findMsg[loadedMsg](t, cmd))
	return m
}

func press(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoading_ShowsOnlyIndicator(t *testing.T) {
	m := newModel(t, &fakeService{})

	sec := SectionsFor(m.State())
	assert.Equal(t, Sections{Loading: true}, sec)

	view := m.View()
	assert.Contains(t, view, loadingText)
	assert.NotContains(t, view, emptyText)
	assert.Empty(t, m.Items())
}

func TestEmptyCollection_ShowsEmptyState(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	assert.Equal(t, Sections{Empty: true}, SectionsFor(m.State()))
	view := m.View()
	assert.Contains(t, view, emptyText)
	assert.Contains(t, view, gopher)
	assert.NotContains(t, view, loadingText)
	assert.Empty(t, m.Items())
}

func TestSingleTask_RendersOneKeyedItem(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "water plants"}}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	require.Len(t, m.Items(), 1)
	assert.Equal(t, model.ID("1"), m.Items()[0].Key)

	view := m.View()
	assert.Equal(t, 1, strings.Count(view, "water plants"))
	assert.NotContains(t, view, emptyText)
	assert.NotContains(t, view, loadingText)
}

func TestServerError_EndsInEmptyStateWithBanner(t *testing.T) {
	svc := &fakeService{listErr: &service.APIError{Status: 500, Message: "boom"}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	assert.Equal(t, Sections{Empty: true, Error: true}, SectionsFor(m.State()))
	view := m.View()
	assert.Contains(t, view, emptyText)
	assert.Contains(t, view, "boom")
	assert.Empty(t, m.Items())
}

func TestMalformedBody_EndsInEmptyState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<<not json>>")
	}))
	defer srv.Close()

	m := newModel(t, service.New(service.Options{BaseURL: srv.URL}))
	require.NotPanics(t, func() { m = load(t, m, m.Init()) })

	view := m.View()
	assert.Contains(t, view, emptyText)
	assert.Contains(t, view, errorPrefix)
	var decErr *service.DecodeError
	assert.True(t, errors.As(m.State().Err, &decErr))
}

func TestActivation_OneFetchEach(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a"}}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())
	assert.Equal(t, 1, svc.calls())

	m, cmd := m.Activate()
	assert.True(t, m.State().Refreshing)
	assert.False(t, m.State().Loading)
	m = load(t, m, cmd)
	assert.Equal(t, 2, svc.calls())
	assert.False(t, m.State().Refreshing)
}

func TestStaleActivationResultIgnored(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "first"}}}
	m := newModel(t, svc)
	first := m.Init()

	m, second := m.Activate()
	svc.mu.Lock()
	svc.tasks = []model.Task{{ID: "2", Body: "second"}}
	svc.mu.Unlock()

	// the first activation's result arrives late and must not land
	stale := findMsg[loadedMsg](t, first)
	m, _ = update(t, m, stale)
	assert.True(t, m.State().Loading)
	assert.Empty(t, m.Items())

	m = load(t, m, second)
	require.Len(t, m.Items(), 1)
	assert.Equal(t, model.ID("2"), m.Items()[0].Key)
}

func TestRefreshWhileLoading_LoadsTasks(t *testing.T) {
	svc := &fakeService{
		tasks: []model.Task{{ID: "1", Body: "a"}},
		gate:  make(chan struct{}),
	}
	m := newModel(t, svc)

	first := m.Init()
	firstDone := make(chan []tea.Msg, 1)
	go func() { firstDone <- messages(first) }()
	require.Eventually(t, func() bool { return svc.calls() == 1 }, time.Second, time.Millisecond)

	m, cmd := update(t, m, press("r"))
	secondDone := make(chan []tea.Msg, 1)
	go func() { secondDone <- messages(cmd) }()

	// the first activation's wait ends with its context
	m, _ = update(t, m, loadedIn(t, <-firstDone))
	assert.True(t, m.State().Loading)

	close(svc.gate)
	var second loadedMsg
	select {
	case msgs := <-secondDone:
		second = loadedIn(t, msgs)
	case <-time.After(time.Second):
		t.Fatal("refresh fetch never returned")
	}
	require.NoError(t, second.res.Err)

	m, _ = update(t, m, second)
	assert.False(t, m.State().Loading)
	assert.NoError(t, m.State().Err)
	require.Len(t, m.Items(), 1)
	assert.Equal(t, model.ID("1"), m.Items()[0].Key)
	assert.NotContains(t, m.View(), errorPrefix)
	assert.NotContains(t, m.View(), emptyText)
}

func TestDeactivate_DropsInFlight(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a"}}}
	m := newModel(t, svc)
	cmd := m.Init()

	m = m.Deactivate()
	m = load(t, m, cmd)
	assert.Empty(t, m.Items())
}

func TestDuplicateIDsRenderedOnce(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a"}, {ID: "1", Body: "b"}, {ID: "2", Body: "c"}}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	require.Len(t, m.Items(), 2)
	assert.Equal(t, "a", m.Items()[0].Task.Body)
	assert.Equal(t, model.ID("2"), m.Items()[1].Key)
}

func TestComplete_InvalidatesAndRefetches(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a"}, {ID: "2", Body: "b"}}}
	cache := query.New[[]model.Task](nil)
	m := New(Options{Service: svc, Cache: cache, Theme: ui.NewTheme("mono")})
	m = load(t, m, m.Init())
	genBefore := cache.Generation(TasksKey)

	m, _ = update(t, m, press("j"))
	m, cmd := update(t, m, press(" "))
	done := findMsg[mutatedMsg](t, cmd)
	assert.Equal(t, []model.ID{"2"}, svc.completed)

	m, cmd = update(t, m, done)
	assert.Equal(t, genBefore+1, cache.Generation(TasksKey))
	// tasks stay on screen while the invalidated collection is refetched
	assert.True(t, m.State().Refreshing)
	m = load(t, m, cmd)
	assert.Equal(t, 2, svc.calls())
	assert.Contains(t, m.View(), "completed")
}

func TestComplete_AlreadyCompletedIsNoop(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a", Completed: true}}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	m, cmd := update(t, m, press(" "))
	assert.Nil(t, cmd)
	assert.Empty(t, svc.completed)
	assert.Contains(t, m.View(), "already completed")
}

func TestDelete_Failure_ShowsStatusKeepsTasks(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a"}}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	svc.mutateErr = errors.New("nope")
	m, cmd := update(t, m, press("d"))
	m, cmd = update(t, m, findMsg[mutatedMsg](t, cmd))
	assert.Nil(t, cmd)
	assert.Len(t, m.Items(), 1)
	assert.Contains(t, m.View(), "deleted: nope")
	assert.Equal(t, 1, svc.calls())
}

func TestAdd(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	m, _ = update(t, m, press("a"))
	require.True(t, m.adding)

	m, cmd := update(t, m, press("enter"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Title cannot be empty")

	for _, r := range "buy milk" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd = update(t, m, press("enter"))
	assert.False(t, m.adding)
	findMsg[mutatedMsg](t, cmd)
	assert.Equal(t, []string{"buy milk"}, svc.created)
}

func TestAdd_EscCancels(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	m, _ = update(t, m, press("a"))
	m, _ = update(t, m, press("x"))
	m, _ = update(t, m, press("esc"))
	assert.False(t, m.adding)
	assert.Empty(t, svc.created)
}

func TestQuit(t *testing.T) {
	m := newModel(t, &fakeService{tasks: []model.Task{}})
	m, cmd := update(t, m, press("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.False(t, m.State().Loading)
}

func TestCursorBounds(t *testing.T) {
	svc := &fakeService{tasks: []model.Task{{ID: "1", Body: "a"}, {ID: "2", Body: "b"}}}
	m := newModel(t, svc)
	m = load(t, m, m.Init())

	m, _ = update(t, m, press("k"))
	assert.Equal(t, 0, m.cursor)
	m, _ = update(t, m, press("j"))
	m, _ = update(t, m, press("j"))
	assert.Equal(t, 1, m.cursor)

	// shrinking collection pulls the cursor back in range
	svc.mu.Lock()
	svc.tasks = svc.tasks[:1]
	svc.mu.Unlock()
	m, cmd := m.Activate()
	m = load(t, m, cmd)
	assert.Equal(t, 0, m.cursor)
}

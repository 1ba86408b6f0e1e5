package tui

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

const maxBodyWidth = 80

// ItemView renders one task. Key is the task's ID.
type ItemView struct {
	Key  model.ID
	Task model.Task
}

func (v ItemView) Render(t ui.Theme, selected bool) string {
	body := v.Task.Body
	if r := []rune(body); len(r) > maxBodyWidth {
		body = string(r[:maxBodyWidth-3]) + "..."
	}

	box := t.Muted.Render(t.BoxUnchecked)
	if v.Task.Completed {
		box = t.Success.Render(t.BoxChecked)
		body = t.Done.Render(body)
	}

	prefix := "  "
	if selected {
		prefix = t.Selected.Render(">") + " "
	}
	return fmt.Sprintf("%s%s %s", prefix, box, body)
}

// ItemViews keys tasks by ID in backend order. Only the first record with a
// given ID is kept.
func ItemViews(tasks []model.Task, log *zap.Logger) []ItemView {
	out := make([]ItemView, 0, len(tasks))
	seen := make(map[model.ID]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			log.Warn("duplicate task id in collection", zap.String("id", t.ID.String()))
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, ItemView{Key: t.ID, Task: t})
	}
	return out
}

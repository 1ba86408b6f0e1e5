package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a task. The backend assigns it; the client only carries it
// around. Integer and string ids both decode into the same form.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts `1`, `"1"` and `"64f0c2..."`.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("task id: not an integer: %s", n)
	}
	*id = ID(n.String())
	return nil
}

// Task is the domain model for a todo entry as the backend returns it.
type Task struct {
	ID        ID     `json:"id"`
	Body      string `json:"body"`
	Completed bool   `json:"completed"`
}

// wireTask also picks up the Mongo-style "_id" key.
type wireTask struct {
	ID        ID     `json:"id"`
	MongoID   ID     `json:"_id"`
	Body      string `json:"body"`
	Completed bool   `json:"completed"`
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var w wireTask
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.ID = w.ID
	if t.ID == "" {
		t.ID = w.MongoID
	}
	t.Body = w.Body
	t.Completed = w.Completed
	return nil
}

// Stats counts completed and pending tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

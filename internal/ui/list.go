package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/kplor/internal/formatter"
	"github.com/desertthunder/kplor/internal/models"
)

var (
	_ list.Item = groupItem{}
	_ list.Item = recordItem{}
)

// groupItem wraps [models.GroupView] to implement [list.Item].
type groupItem struct {
	group models.GroupView
}

func (i groupItem) FilterValue() string { return i.group.Institution }
func (i groupItem) Title() string       { return i.group.Institution }
func (i groupItem) Description() string {
	return fmt.Sprintf("%d courses • %d requests", len(i.group.Records), i.group.TotalRequests)
}

// recordItem wraps [models.CourseRecord] to implement [list.Item].
type recordItem struct {
	record    models.CourseRecord
	goal      int
	requested bool
}

func (i recordItem) FilterValue() string { return i.record.Title }
func (i recordItem) Title() string {
	if i.requested {
		return "✓ " + i.record.Title
	}
	return i.record.Title
}
func (i recordItem) Description() string {
	return fmt.Sprintf("%s • Semester %d • %s • %s",
		i.record.Department, i.record.Term, formatter.ProgressBar(i.record.RequestCount, i.goal, 10), i.record.Status.Label())
}

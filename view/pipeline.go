// Package view derives the displayed task list and owns the client-side task
// cache of an authenticated session.
package view

import (
	"cmp"
	"slices"
	"strings"

	domain "github.com/example/student-task-manager/domain/task"
)

// Filter selects tasks by completion state.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// SortKey names the field the list is ordered by.
type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortPriority  SortKey = "priority"
	SortDueDate   SortKey = "dueDate"
)

// ParseFilter maps s to a Filter. Unknown values mean FilterAll.
func ParseFilter(s string) Filter {
	switch f := Filter(s); f {
	case FilterPending, FilterCompleted:
		return f
	}
	return FilterAll
}

// ParseSort maps s to a SortKey. Unknown values mean SortCreatedAt.
func ParseSort(s string) SortKey {
	switch k := SortKey(s); k {
	case SortPriority, SortDueDate:
		return k
	}
	return SortCreatedAt
}

// Query is the user's current view settings.
type Query struct {
	Filter Filter
	Search string
	SortBy SortKey
}

// Derive filters by status, then by title search, then stable-sorts. The
// input slice is never modified and the result is a new slice.
func Derive(tasks []domain.Task, q Query) []domain.Task {
	filter := ParseFilter(string(q.Filter))
	needle := strings.ToLower(q.Search)

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesFilter(t, filter) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, comparator(ParseSort(string(q.SortBy))))
	return out
}

func matchesFilter(t domain.Task, f Filter) bool {
	switch f {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	}
	return true
}

func comparator(key SortKey) func(a, b domain.Task) int {
	switch key {
	case SortPriority:
		return func(a, b domain.Task) int {
			return cmp.Compare(b.Priority.Rank(), a.Priority.Rank())
		}
	case SortDueDate:
		return compareDueDate
	}
	return func(a, b domain.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	}
}

// compareDueDate orders ascending with missing dates last.
func compareDueDate(a, b domain.Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return a.DueDate.Compare(b.DueDate.Time)
}

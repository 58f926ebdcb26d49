package workflow

import "tasktracker/internal/models"

// Column is one status lane of the kanban board.
type Column struct {
	Status models.Status `json:"status"`
	Count  int           `json:"count"`
	Tasks  []models.Task `json:"tasks"`
}

// Board splits tasks into one column per status in workflow order. The
// relative order of tasks inside a column is preserved. Tasks with an unknown
// status are dropped, matching what the board can render.
func Board(tasks []models.Task) []Column {
	statuses := models.Statuses()
	columns := make([]Column, len(statuses))
	for i, s := range statuses {
		columns[i] = Column{Status: s, Tasks: []models.Task{}}
	}
	for _, t := range tasks {
		idx := t.Status.Index()
		if idx < 0 {
			continue
		}
		columns[idx].Tasks = append(columns[idx].Tasks, t)
		columns[idx].Count++
	}
	return columns
}

// Summary counts tasks by workflow phase.
type Summary struct {
	Total      int `json:"total"`
	NotStarted int `json:"not_started"`
	InProgress int `json:"in_progress"`
	Testing    int `json:"testing"`
	Review     int `json:"review"`
	Done       int `json:"done"`
	Blocked    int `json:"blocked"`
}

// Summarize classifies tasks into workflow phases.
func Summarize(tasks []models.Task) Summary {
	var s Summary
	for _, t := range tasks {
		s.Total++
		switch {
		case t.Status == models.StatusNotStarted:
			s.NotStarted++
		case t.Status.IsInProgress():
			s.InProgress++
		case t.Status.IsTesting():
			s.Testing++
		case t.Status == models.StatusPRRaised:
			s.Review++
		case t.Status.IsDone():
			s.Done++
		}
		if t.Blocked() {
			s.Blocked++
		}
	}
	return s
}

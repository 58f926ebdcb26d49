package assistant

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"tasktracker/internal/models"
	"tasktracker/internal/workflow"
)

const promptTemplate = `You are WorkBuddy, the assistant of a personal task tracker.
Answer the user's question using only the task data below. Be brief and concrete.
If the data does not contain the answer, say so.
Today is {{.Today}}.

## Overview
{{with .Summary}}Total tasks: {{.Total}}. Not started: {{.NotStarted}}. In progress: {{.InProgress}}. Testing: {{.Testing}}. PR raised: {{.Review}}. Deployed: {{.Done}}. Blocked: {{.Blocked}}.{{end}}

## Tasks
{{- range .Projects}}

### Project: {{.Project.Name}}
{{- range .Tasks}}
{{taskLine .}}
{{- else}}
(no tasks)
{{- end}}
{{- else}}
(no projects)
{{- end}}
{{- if .History}}

## Conversation so far
{{- range .History}}
{{.Role}}: {{.Text}}
{{- end}}
{{- end}}

user: {{.Question}}
assistant:`

var promptTmpl = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"taskLine": taskLine,
}).Parse(promptTemplate))

type promptData struct {
	Today    string
	Summary  workflow.Summary
	Projects []models.ProjectTasks
	History  []Message
	Question string
}

// BuildPrompt renders the board snapshot, earlier messages and the question
// into one prompt.
func BuildPrompt(snapshot []models.ProjectTasks, history []Message, question string, now time.Time) (string, error) {
	var all []models.Task
	for _, pt := range snapshot {
		all = append(all, pt.Tasks...)
	}

	var sb strings.Builder
	err := promptTmpl.Execute(&sb, promptData{
		Today:    now.Format(models.DateLayout),
		Summary:  workflow.Summarize(all),
		Projects: snapshot,
		History:  history,
		Question: strings.TrimSpace(question),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

func taskLine(t models.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- #%d %s [status: %s, priority: %s", t.ID, t.Title, t.Status, t.Priority)
	if d := t.AssignedDate.DateOnly(); d != "" {
		fmt.Fprintf(&sb, ", assigned: %s", d)
	}
	if d := t.StartDate.DateOnly(); d != "" {
		fmt.Fprintf(&sb, ", started: %s", d)
	}
	if d := t.EndDate.DateOnly(); d != "" {
		fmt.Fprintf(&sb, ", deployed: %s", d)
	}
	sb.WriteString("]")
	if t.Blocked() {
		fmt.Fprintf(&sb, " BLOCKED: %s", t.Blocker)
	}
	if t.Description != "" {
		fmt.Fprintf(&sb, "\n  %s", strings.ReplaceAll(t.Description, "\n", "\n  "))
	}
	return sb.String()
}

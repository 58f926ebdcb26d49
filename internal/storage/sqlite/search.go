package sqlite

import (
	"context"
	"strings"
	"unicode/utf8"

	"tasktracker/internal/models"
)

const (
	// MinSearchLength is the shortest query the search box sends.
	MinSearchLength = 2
	// SearchLimit caps the number of search hits.
	SearchLimit = 20
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchTasks finds tasks whose title contains query, across all projects,
// newest first. Matching follows SQLite's LIKE, which folds ASCII case only.
// Queries shorter than MinSearchLength return no hits without querying.
func (s *Store) SearchTasks(ctx context.Context, query string) ([]models.SearchResult, error) {
	results := []models.SearchResult{}
	if utf8.RuneCountInString(query) < MinSearchLength {
		return results, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.project_id, t.title, t.status, COALESCE(t.priority, 'Medium'), p.name
        FROM tasks t JOIN projects p ON p.id = t.project_id
        WHERE t.title LIKE ? ESCAPE '\'
        ORDER BY t.created_at DESC, t.id DESC
        LIMIT ?`, "%"+likeEscaper.Replace(query)+"%", SearchLimit)
	if err != nil {
		return nil, wrapErr("search tasks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                models.SearchResult
			status, priority string
		)
		if err := rows.Scan(&r.TaskID, &r.ProjectID, &r.Title, &status, &priority, &r.ProjectName); err != nil {
			return nil, wrapErr("scan search result", err)
		}
		r.Status = models.Status(status)
		r.Priority = models.Priority(priority)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("search tasks", err)
	}
	return results, nil
}

// Snapshot reads every project with its tasks, in sidebar order. It backs
// the assistant's view of the board.
func (s *Store) Snapshot(ctx context.Context) ([]models.ProjectTasks, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectTasks, 0, len(projects))
	for _, p := range projects {
		tasks, err := s.ListTasksByProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ProjectTasks{Project: p, Tasks: tasks})
	}
	return out, nil
}

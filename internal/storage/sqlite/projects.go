package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tasktracker/internal/models"
	"tasktracker/internal/ordering"
)

const projectColumns = `id, name, order_index, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p       models.Project
		order   sql.NullInt64
		created sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &order, &created); err != nil {
		return models.Project{}, err
	}
	p.OrderIndex = order.Int64
	t, err := scanTime(created)
	if err != nil {
		return models.Project{}, err
	}
	p.CreatedAt = t
	return p, nil
}

// ListProjects retrieves all projects in sidebar order.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY order_index ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, wrapErr("list projects", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, wrapErr("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list projects", err)
	}
	return projects, nil
}

// CreateProject appends a new project at the end of the sidebar.
func (s *Store) CreateProject(ctx context.Context, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, fmt.Errorf("%w: project name must not be empty", models.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, order_index, created_at)
        VALUES(?, (SELECT COALESCE(MAX(order_index) + 1, 0) FROM projects), ?)`, name, s.timestamp())
	if err != nil {
		return models.Project{}, wrapErr("insert project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, wrapErr("project id", err)
	}
	s.logger.Debug("project created", slog.Int64("id", id), slog.String("name", name))
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, wrapErr("get project", err)
	}
	return p, nil
}

// RenameProject changes the display name of a project.
func (s *Store) RenameProject(ctx context.Context, id int64, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, fmt.Errorf("%w: project name must not be empty", models.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return models.Project{}, wrapErr("rename project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Project{}, wrapErr("rename project", err)
	}
	if affected == 0 {
		return models.Project{}, fmt.Errorf("project %d: %w", id, models.ErrNotFound)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project; its tasks go with it through the
// cascading foreign key. Deleting an unknown id is not an error, and the
// remaining projects keep their order indices.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return wrapErr("delete project", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		s.logger.Debug("project deleted", slog.Int64("id", id))
	}
	return nil
}

// RenumberProjectOrder stores order index = position for every id, in one
// transaction so a failure leaves the previous order intact.
func (s *Store) RenumberProjectOrder(ctx context.Context, orderedIDs []int64) error {
	if dup, ok := ordering.Duplicates(orderedIDs); ok {
		return fmt.Errorf("%w: project %d listed twice", models.ErrValidation, dup)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin reorder", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE projects SET order_index = ? WHERE id = ?`)
	if err != nil {
		return wrapErr("prepare reorder", err)
	}
	defer stmt.Close()

	for pos, id := range orderedIDs {
		if _, err := stmt.ExecContext(ctx, pos, id); err != nil {
			return wrapErr("reorder project", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit reorder", err)
	}
	return nil
}

// MoveProject drops dragged onto target's position and renumbers the whole
// sidebar. It reports whether anything changed.
func (s *Store) MoveProject(ctx context.Context, dragged, target int64) ([]models.Project, bool, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, false, err
	}
	ids, moved := ordering.Move(ordering.IDs(projects), dragged, target)
	if !moved {
		return projects, false, nil
	}
	if err := s.RenumberProjectOrder(ctx, ids); err != nil {
		return nil, false, err
	}
	projects, err = s.ListProjects(ctx)
	return projects, true, err
}

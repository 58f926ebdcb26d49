package sqlite

import (
	"context"
	"fmt"
)

const nowExpr = `(strftime('%Y-%m-%d %H:%M:%f', 'now'))`

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            order_index INTEGER,
            created_at TEXT DEFAULT ` + nowExpr + `
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT,
            status TEXT NOT NULL DEFAULT 'Not Started',
            blocker TEXT,
            priority TEXT DEFAULT 'Medium',
            assigned_date TEXT DEFAULT ` + nowExpr + `,
            start_date TEXT,
            end_date TEXT,
            created_at TEXT DEFAULT ` + nowExpr + `,
            updated_at TEXT DEFAULT ` + nowExpr + `,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Databases created before manual ordering existed lack order_index.
	if err := s.ensureOrderIndex(ctx); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_order ON projects(order_index, created_at);`,
	}
	for _, stmt := range indexes {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) ensureOrderIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(projects)`)
	if err != nil {
		return fmt.Errorf("inspect projects: %w", err)
	}
	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("inspect projects: %w", err)
		}
		if name == "order_index" {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("inspect projects: %w", err)
	}
	rows.Close()
	if found {
		return nil
	}

	s.logger.Info("adding order_index to projects")
	stmts := []string{
		`ALTER TABLE projects ADD COLUMN order_index INTEGER;`,
		`UPDATE projects SET order_index = (
            SELECT COUNT(*) FROM projects p2
            WHERE p2.created_at < projects.created_at
               OR (p2.created_at = projects.created_at AND p2.id < projects.id)
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

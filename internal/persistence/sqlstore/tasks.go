package sqlstore

import (
	"context"
	"strings"

	"github.com/example/court-reservations/internal/persistence"
)

const taskColumns = `id, title, description, assignee_id, assigner_id, due_date, status, created_at, updated_at`

type taskRow struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	AssigneeID  int64      `db:"assignee_id"`
	AssignerID  int64      `db:"assigner_id"`
	DueDate     nullDBTime `db:"due_date"`
	Status      string     `db:"status"`
	CreatedAt   dbTime     `db:"created_at"`
	UpdatedAt   dbTime     `db:"updated_at"`
}

func (r taskRow) model() persistence.Task {
	return persistence.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		AssigneeID:  r.AssigneeID,
		AssignerID:  r.AssignerID,
		DueDate:     r.DueDate.Ptr(),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.Time(),
		UpdatedAt:   r.UpdatedAt.Time(),
	}
}

// CreateTask inserts a new task.
func (s *Storage) CreateTask(ctx context.Context, task persistence.Task) (persistence.Task, error) {
	if strings.TrimSpace(task.Title) == "" || task.AssigneeID == 0 || task.AssignerID == 0 {
		return persistence.Task{}, persistence.ErrConstraintViolation
	}

	now := s.nowUTC()
	id, err := insertReturningID(ctx, s.db, `
		INSERT INTO tasks (title, description, assignee_id, assigner_id, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		task.Title,
		task.Description,
		task.AssigneeID,
		task.AssignerID,
		s.nullableTimestamp(task.DueDate),
		task.Status,
		s.timestamp(now),
		s.timestamp(now),
	)
	if err != nil {
		return persistence.Task{}, s.mapError(err)
	}

	return s.GetTask(ctx, id)
}

// UpdateTask overwrites an existing task.
func (s *Storage) UpdateTask(ctx context.Context, task persistence.Task) (persistence.Task, error) {
	if task.ID == 0 || strings.TrimSpace(task.Title) == "" {
		return persistence.Task{}, persistence.ErrConstraintViolation
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks
		SET title = ?, description = ?, assignee_id = ?, due_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`),
		task.Title,
		task.Description,
		task.AssigneeID,
		s.nullableTimestamp(task.DueDate),
		task.Status,
		s.timestamp(s.nowUTC()),
		task.ID,
	)
	if err != nil {
		return persistence.Task{}, s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.Task{}, persistence.ErrNotFound
	}

	return s.GetTask(ctx, task.ID)
}

// GetTask retrieves a task by id.
func (s *Storage) GetTask(ctx context.Context, id int64) (persistence.Task, error) {
	var row taskRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id); err != nil {
		return persistence.Task{}, s.mapError(err)
	}
	return row.model(), nil
}

// ListTasks returns tasks matching filter, newest first.
func (s *Storage) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.Task, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.AssigneeID != nil {
		clauses = append(clauses, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, s.mapError(err)
	}

	tasks := make([]persistence.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.model())
	}
	return tasks, nil
}

// DeleteTask removes a task.
func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

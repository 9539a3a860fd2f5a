package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/persistence"
)

// TaskRepository captures the persistence operations needed by the task service.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// UserLookup resolves users referenced by other records.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

// TaskService lets managers assign work to staff and staff track it.
type TaskService struct {
	tasks     TaskRepository
	users     UserLookup
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewTaskService constructs a task service.
func NewTaskService(tasks TaskRepository, users UserLookup, publisher Publisher, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(tasks, users, publisher, now, nil)
}

// NewTaskServiceWithLogger constructs a task service with a specified logger.
func NewTaskServiceWithLogger(tasks TaskRepository, users UserLookup, publisher Publisher, now func() time.Time, logger *slog.Logger) *TaskService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &TaskService{tasks: tasks, users: users, publisher: publisher, now: now, logger: defaultLogger(logger)}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

// CreateTask assigns a new task to a staff member.
func (s *TaskService) CreateTask(ctx context.Context, principal Principal, input TaskInput) (task Task, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}
	if s.tasks == nil || s.users == nil {
		err = fmt.Errorf("task service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateTask",
		"principal_id", principal.UserID,
		"assignee_id", input.AssigneeID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("task_id", task.ID).InfoContext(ctx, "task created")
	}()

	if err = Authorize(principal, ActionAssignTasks); err != nil {
		return
	}

	if input.Status == "" {
		input.Status = TaskPending
	}
	if err = s.validateTaskInput(ctx, input); err != nil {
		return
	}

	now := s.now().UTC()
	task, err = s.tasks.CreateTask(ctx, Task{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		AssigneeID:  input.AssigneeID,
		AssignerID:  principal.UserID,
		DueDate:     normalizeOptionalTime(input.DueDate),
		Status:      input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = mapTaskRepoError(err)
		return
	}

	s.notifyAssigned(ctx, logger, task, now)
	return
}

// UpdateTask replaces the editable fields of a task. Managers only.
func (s *TaskService) UpdateTask(ctx context.Context, principal Principal, taskID int64, input TaskInput) (task Task, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}
	if s.tasks == nil || s.users == nil {
		err = fmt.Errorf("task service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTask",
		"principal_id", principal.UserID,
		"task_id", taskID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task updated")
	}()

	if err = Authorize(principal, ActionAssignTasks); err != nil {
		return
	}

	var existing Task
	existing, err = s.tasks.GetTask(ctx, taskID)
	if err != nil {
		err = mapTaskRepoError(err)
		return
	}

	if input.Status == "" {
		input.Status = existing.Status
	}
	if err = s.validateTaskInput(ctx, input); err != nil {
		return
	}

	now := s.now().UTC()
	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = strings.TrimSpace(input.Description)
	updated.AssigneeID = input.AssigneeID
	updated.DueDate = normalizeOptionalTime(input.DueDate)
	updated.Status = input.Status
	updated.UpdatedAt = now

	task, err = s.tasks.UpdateTask(ctx, updated)
	if err != nil {
		err = mapTaskRepoError(err)
		return
	}

	if task.AssigneeID != existing.AssigneeID {
		s.notifyAssigned(ctx, logger, task, now)
	}
	return
}

// UpdateTaskStatus lets the assignee or a manager move a task along.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, principal Principal, taskID int64, status TaskStatus) (task Task, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}
	if s.tasks == nil {
		err = fmt.Errorf("task repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTaskStatus",
		"principal_id", principal.UserID,
		"task_id", taskID,
		"status", string(status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update task status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task status updated")
	}()

	if !principal.Role.IsStaff() {
		err = ErrUnauthorized
		return
	}
	if !status.Valid() {
		err = fieldError("status", "status must be one of pending, in_progress, completed")
		return
	}

	var existing Task
	existing, err = s.tasks.GetTask(ctx, taskID)
	if err != nil {
		err = mapTaskRepoError(err)
		return
	}
	if existing.AssigneeID != principal.UserID && Authorize(principal, ActionViewAllTasks) != nil {
		err = ErrNotFound
		return
	}

	existing.Status = status
	existing.UpdatedAt = s.now().UTC()
	task, err = s.tasks.UpdateTask(ctx, existing)
	if err != nil {
		err = mapTaskRepoError(err)
		return
	}
	return
}

// GetTask returns a task to its assignee or a manager.
func (s *TaskService) GetTask(ctx context.Context, principal Principal, taskID int64) (Task, error) {
	if s == nil {
		return Task{}, fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return Task{}, fmt.Errorf("task repository not configured")
	}
	if !principal.Role.IsStaff() {
		return Task{}, ErrUnauthorized
	}

	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, mapTaskRepoError(err)
	}
	if task.AssigneeID != principal.UserID && Authorize(principal, ActionViewAllTasks) != nil {
		return Task{}, ErrNotFound
	}
	return task, nil
}

// ListTasks returns tasks newest first. Employees only see their own.
func (s *TaskService) ListTasks(ctx context.Context, principal Principal, filter TaskFilter) ([]Task, error) {
	if s == nil {
		return nil, fmt.Errorf("TaskService is nil")
	}
	if !principal.Role.IsStaff() {
		return nil, ErrUnauthorized
	}
	if s.tasks == nil {
		return nil, nil
	}

	if Authorize(principal, ActionViewAllTasks) != nil {
		self := principal.UserID
		filter.AssigneeID = &self
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fieldError("status", "status must be one of pending, in_progress, completed")
	}

	tasks, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, storageError("list tasks", err)
	}
	return tasks, nil
}

// DeleteTask removes a task. Managers only.
func (s *TaskService) DeleteTask(ctx context.Context, principal Principal, taskID int64) error {
	if s == nil {
		return fmt.Errorf("TaskService is nil")
	}
	if err := Authorize(principal, ActionAssignTasks); err != nil {
		return err
	}
	if s.tasks == nil {
		return fmt.Errorf("task repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTask",
		"principal_id", principal.UserID,
		"task_id", taskID,
	)
	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		err = mapTaskRepoError(err)
		logger.ErrorContext(ctx, "failed to delete task", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "task deleted")
	return nil
}

func (s *TaskService) validateTaskInput(ctx context.Context, input TaskInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if !input.Status.Valid() {
		vErr.add("status", "status must be one of pending, in_progress, completed")
	}
	if input.AssigneeID <= 0 {
		vErr.add("assigned_to", "assigned_to is required")
	} else {
		assignee, err := s.users.GetUser(ctx, input.AssigneeID)
		switch {
		case isNotFound(err):
			vErr.add("assigned_to", "assignee does not exist")
		case err != nil:
			return storageError("get assignee", err)
		case !assignee.Role.IsStaff():
			vErr.add("assigned_to", "tasks can only be assigned to staff")
		case !assignee.IsActive:
			vErr.add("assigned_to", "assignee is deactivated")
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, logger *slog.Logger, task Task, at time.Time) {
	payload := TaskNotification{
		TaskID:     task.ID,
		AssigneeID: task.AssigneeID,
		AssignerID: task.AssignerID,
		Title:      task.Title,
		DueDate:    task.DueDate,
		OccurredAt: at,
	}
	if err := s.publisher.Publish(ctx, TopicTaskAssigned, payload); err != nil {
		logger.WarnContext(ctx, "failed to publish notification", "topic", TopicTaskAssigned, "error", err)
	}
}

func normalizeOptionalTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func mapTaskRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return fieldError("assigned_to", "assignee does not exist")
	}
	return storageError("task repository", err)
}

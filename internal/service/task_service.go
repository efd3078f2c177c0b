package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub/internal/auth"
	"taskhub/internal/cache"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// saveRetries bounds how often a mutation is re-applied after losing an
// optimistic write race.
const saveRetries = 3

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     time.Time
	AssignedTo  []uuid.UUID
	Attachments []string
	Checklist   []model.ChecklistItem
}

// UpdateTaskInput carries a partial task update. Nil fields keep their prior
// value; a non-nil empty list overwrites (e.g. clearing attachments).
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
	AssignedTo  *[]uuid.UUID
	Attachments *[]string
	Checklist   *[]model.ChecklistItem
}

// AssigneeSummary is the public projection of an assigned user.
type AssigneeSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profileImageUrl"`
}

// TaskView is a task enriched with assignee summaries and the derived
// completed-checklist count. The count is computed, never persisted.
type TaskView struct {
	model.Task
	AssignedTo              []AssigneeSummary `json:"assignedTo"`
	CompletedChecklistCount int               `json:"completedChecklistCount"`
}

// StatusSummary counts the caller's visible tasks per status. The buckets
// always sum to All.
type StatusSummary struct {
	All        int64 `json:"all"`
	Todo       int64 `json:"todoTasks"`
	InProgress int64 `json:"inProgressTasks"`
	Done       int64 `json:"doneTasks"`
}

// TaskList is the listing response: visible tasks plus their status summary.
type TaskList struct {
	Tasks         []TaskView    `json:"tasks"`
	StatusSummary StatusSummary `json:"statusSummary"`
}

// TaskService owns the checklist/progress/status invariant and the
// authorization rules for task mutation.
type TaskService interface {
	Create(ctx context.Context, actor auth.Identity, in CreateTaskInput) (*TaskView, error)
	Update(ctx context.Context, actor auth.Identity, id uuid.UUID, in UpdateTaskInput) (*TaskView, error)
	Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error
	UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status string) (*TaskView, error)
	UpdateChecklist(ctx context.Context, actor auth.Identity, id uuid.UUID, items []model.ChecklistItem) (*TaskView, error)
	Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*TaskView, error)
	List(ctx context.Context, actor auth.Identity, statusFilter string) (*TaskList, error)
}

type taskService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	cache *cache.Client
}

// NewTaskService creates a new task lifecycle service.
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, cache *cache.Client) TaskService {
	return &taskService{
		tasks: tasks,
		users: users,
		cache: cache,
	}
}

// Create persists a new task. Admin only.
func (s *taskService) Create(ctx context.Context, actor auth.Identity, in CreateTaskInput) (*TaskView, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.ErrNotAuthorized
	}

	priority := model.PriorityMedium
	if in.Priority != "" {
		priority = model.Priority(strings.ToLower(in.Priority))
		if !priority.Valid() {
			return nil, apperrors.ErrInvalidPriority
		}
	}
	status := model.StatusTodo
	if in.Status != "" {
		status = model.Status(strings.ToLower(in.Status))
		if !status.Valid() {
			return nil, apperrors.ErrInvalidStatus
		}
	}

	assignees, err := s.resolveAssignees(ctx, in.AssignedTo)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		Status:      status,
		DueDate:     in.DueDate,
		Assignees:   assignees,
		CreatedByID: actor.ID,
		Attachments: in.Attachments,
		Checklist:   in.Checklist,
		Progress:    0,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.invalidateDashboards(ctx, task)
	view := newTaskView(task)
	return &view, nil
}

// Update performs a merge-if-present partial update. Admin only.
func (s *taskService) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, in UpdateTaskInput) (*TaskView, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.ErrNotAuthorized
	}

	var assignees []model.User
	if in.AssignedTo != nil {
		resolved, err := s.resolveAssignees(ctx, *in.AssignedTo)
		if err != nil {
			return nil, err
		}
		assignees = resolved
	}
	if in.Priority != nil && !model.Priority(strings.ToLower(*in.Priority)).Valid() {
		return nil, apperrors.ErrInvalidPriority
	}

	task, err := s.mutate(ctx, id, nil, func(task *model.Task) {
		if in.Title != nil {
			task.Title = *in.Title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Priority != nil {
			task.Priority = model.Priority(strings.ToLower(*in.Priority))
		}
		if in.DueDate != nil {
			task.DueDate = *in.DueDate
		}
		if in.Attachments != nil {
			task.Attachments = *in.Attachments
		}
		if in.Checklist != nil {
			task.Checklist = *in.Checklist
		}
		if in.AssignedTo != nil {
			task.Assignees = assignees
		}
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDashboards(ctx, task)
	view := newTaskView(task)
	return &view, nil
}

// Delete removes a task. Admin only.
func (s *taskService) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperrors.ErrNotAuthorized
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrTaskNotFound
		}
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateDashboards(ctx, task)
	return nil
}

// UpdateStatus sets the status directly. Authorized for admins and assignees.
// Setting done is authoritative: every checklist item is forced done and
// progress forced to 100 rather than being recomputed.
func (s *taskService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status string) (*TaskView, error) {
	newStatus := model.Status(strings.ToLower(status))
	if !newStatus.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}

	task, err := s.mutate(ctx, id, s.authorizeAssignee(actor), func(task *model.Task) {
		task.Status = newStatus
		if newStatus == model.StatusDone {
			for i := range task.Checklist {
				task.Checklist[i].Done = true
			}
			task.Progress = 100
		}
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDashboards(ctx, task)
	view := newTaskView(task)
	return &view, nil
}

// UpdateChecklist replaces the checklist wholesale, recomputes progress and
// derives status from it, overwriting any manually set status. Authorized for
// admins and assignees.
func (s *taskService) UpdateChecklist(ctx context.Context, actor auth.Identity, id uuid.UUID, items []model.ChecklistItem) (*TaskView, error) {
	task, err := s.mutate(ctx, id, s.authorizeAssignee(actor), func(task *model.Task) {
		applyChecklist(task, items)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDashboards(ctx, task)
	view := newTaskView(task)
	return &view, nil
}

// Get returns one task for any authenticated caller.
func (s *taskService) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*TaskView, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	view := newTaskView(task)
	return &view, nil
}

// List returns the caller's visible tasks, optionally filtered by status,
// plus a status summary computed over the same visibility scope. Admins see
// everything, members only tasks they are assigned to.
func (s *taskService) List(ctx context.Context, actor auth.Identity, statusFilter string) (*TaskList, error) {
	var status model.Status
	if statusFilter != "" {
		status = model.Status(strings.ToLower(statusFilter))
		if !status.Valid() {
			return nil, apperrors.ErrInvalidStatus
		}
	}

	scope := uuid.Nil
	if !actor.IsAdmin() {
		scope = actor.ID
	}

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{Status: status, AssigneeID: scope})
	if err != nil {
		return nil, err
	}

	// The summary ignores the status filter so its buckets always sum to all.
	statusCounts, err := s.tasks.CountByField(ctx, "status", scope)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, newTaskView(&tasks[i]))
	}

	summary := StatusSummary{
		Todo:       statusCounts[string(model.StatusTodo)],
		InProgress: statusCounts[string(model.StatusInProgress)],
		Done:       statusCounts[string(model.StatusDone)],
	}
	summary.All = summary.Todo + summary.InProgress + summary.Done

	return &TaskList{Tasks: views, StatusSummary: summary}, nil
}

// authorizeAssignee admits admins and members of the task's assignment set.
func (s *taskService) authorizeAssignee(actor auth.Identity) func(*model.Task) error {
	return func(task *model.Task) error {
		if actor.IsAdmin() || task.IsAssignedTo(actor.ID) {
			return nil
		}
		return apperrors.ErrNotAuthorized
	}
}

// mutate runs a read-modify-write against one task, retrying a bounded number
// of times when the optimistic version guard rejects the write. authorize may
// be nil when the caller already checked.
func (s *taskService) mutate(ctx context.Context, id uuid.UUID, authorize func(*model.Task) error, apply func(*model.Task)) (*model.Task, error) {
	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		task, err := s.tasks.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.ErrTaskNotFound
			}
			return nil, err
		}

		if authorize != nil {
			if err := authorize(task); err != nil {
				return nil, err
			}
		}

		apply(task)

		if err := s.tasks.Save(ctx, task); err != nil {
			if errors.Is(err, apperrors.ErrStaleTask) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return task, nil
	}
	return nil, lastErr
}

// resolveAssignees loads the referenced users, deduplicating the id set.
// A reference to a missing user is rejected.
func (s *taskService) resolveAssignees(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	users, err := s.users.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(users) != len(unique) {
		return nil, apperrors.ErrInvalidAssignee
	}
	return users, nil
}

// invalidateDashboards drops the cached aggregates affected by a mutation:
// the global dashboard and every assignee's personal one.
func (s *taskService) invalidateDashboards(ctx context.Context, task *model.Task) {
	_ = s.cache.Delete(ctx, globalDashboardKey())
	for _, u := range task.Assignees {
		_ = s.cache.Delete(ctx, userDashboardKey(u.ID))
	}
}

// applyChecklist replaces the checklist and derives progress and status.
// Rounding is half away from zero on 100*done/total; an empty list means
// progress 0. The derivation is unconditional.
func applyChecklist(task *model.Task, items []model.ChecklistItem) {
	task.Checklist = items

	done := task.CompletedChecklistCount()
	total := len(items)
	if total > 0 {
		task.Progress = int(math.Round(float64(done) / float64(total) * 100))
	} else {
		task.Progress = 0
	}

	switch {
	case task.Progress == 100:
		task.Status = model.StatusDone
	case task.Progress > 0:
		task.Status = model.StatusInProgress
	default:
		task.Status = model.StatusTodo
	}
}

func newTaskView(task *model.Task) TaskView {
	assignees := make([]AssigneeSummary, 0, len(task.Assignees))
	for _, u := range task.Assignees {
		assignees = append(assignees, AssigneeSummary{
			ID:              u.ID,
			Name:            u.Name,
			Email:           u.Email,
			ProfileImageURL: u.ProfileImageURL,
		})
	}
	return TaskView{
		Task:                    *task,
		AssignedTo:              assignees,
		CompletedChecklistCount: task.CompletedChecklistCount(),
	}
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/errors"
	"taskhub/internal/model"
)

// TaskFilter narrows task queries. Zero-value fields are ignored, so the
// empty filter matches everything.
type TaskFilter struct {
	Status     model.Status
	AssigneeID uuid.UUID
}

// TaskRepository defines task persistence operations. Reads that return
// whole tasks preload the assignee set.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	// Save persists a previously loaded task guarded by its version token.
	// It returns errors.ErrStaleTask when a concurrent writer got there
	// first; the caller re-reads and re-applies.
	Save(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	CountOverdue(ctx context.Context, assigneeID uuid.UUID, now time.Time) (int64, error)
	// CountByField groups visible tasks by an enum column ("status" or
	// "priority") and returns per-value counts. Absent values are absent
	// from the map; callers zero-fill.
	CountByField(ctx context.Context, field string, assigneeID uuid.UUID) (map[string]int64, error)
	Recent(ctx context.Context, assigneeID uuid.UUID, limit int) ([]model.Task, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// scoped restricts the query to tasks assigned to the given user. The nil
// UUID means no restriction.
func scoped(q *gorm.DB, assigneeID uuid.UUID) *gorm.DB {
	if assigneeID == uuid.Nil {
		return q
	}
	return q.Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("task_assignments.user_id = ?", assigneeID)
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Assignees").
		Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	q := scoped(r.db.WithContext(ctx).Model(&model.Task{}), filter.AssigneeID)
	if filter.Status != "" {
		q = q.Where("tasks.status = ?", filter.Status)
	}
	if err := q.Preload("Assignees").Order("tasks.created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Save(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev := task.Version
		task.Version = prev + 1
		res := tx.Model(&model.Task{}).
			Where("id = ? AND version = ?", task.ID, prev).
			Select("title", "description", "priority", "status", "due_date",
				"attachments", "checklist", "progress", "version").
			Updates(task)
		if res.Error != nil {
			task.Version = prev
			return res.Error
		}
		if res.RowsAffected == 0 {
			task.Version = prev
			return errors.ErrStaleTask
		}
		return tx.Model(task).Association("Assignees").Replace(&task.Assignees)
	})
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Select(Associations) clears the join table rows along with the task.
	return r.db.WithContext(ctx).Select(clause.Associations).
		Delete(&model.Task{ID: id}).Error
}

func (r *taskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	var n int64
	q := scoped(r.db.WithContext(ctx).Model(&model.Task{}), filter.AssigneeID)
	if filter.Status != "" {
		q = q.Where("tasks.status = ?", filter.Status)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *taskRepository) CountOverdue(ctx context.Context, assigneeID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	q := scoped(r.db.WithContext(ctx).Model(&model.Task{}), assigneeID)
	if err := q.Where("tasks.due_date < ? AND tasks.status <> ?", now, model.StatusDone).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *taskRepository) CountByField(ctx context.Context, field string, assigneeID uuid.UUID) (map[string]int64, error) {
	// Whitelisted to keep the column name out of caller control.
	if field != "status" && field != "priority" {
		return nil, fmt.Errorf("unsupported group-by field %q", field)
	}

	type bucket struct {
		Value string
		Count int64
	}
	var buckets []bucket
	q := scoped(r.db.WithContext(ctx).Model(&model.Task{}), assigneeID)
	if err := q.Select("tasks." + field + " AS value, COUNT(*) AS count").
		Group("tasks." + field).Scan(&buckets).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Value] = b.Count
	}
	return counts, nil
}

func (r *taskRepository) Recent(ctx context.Context, assigneeID uuid.UUID, limit int) ([]model.Task, error) {
	var tasks []model.Task
	q := scoped(r.db.WithContext(ctx).Model(&model.Task{}), assigneeID)
	if err := q.Order("tasks.created_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

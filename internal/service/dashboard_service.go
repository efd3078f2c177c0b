package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/cache"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const (
	dashboardCacheTTL = 30 * time.Second
	recentTaskLimit   = 10
)

func globalDashboardKey() string {
	return "dashboard:global"
}

func userDashboardKey(userID uuid.UUID) string {
	return "dashboard:user:" + userID.String()
}

// DashboardStatistics are the headline counts of a dashboard scope.
type DashboardStatistics struct {
	TotalTasks      int64 `json:"totalTasks"`
	TodoTasks       int64 `json:"todoTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	DoneTasks       int64 `json:"doneTasks"`
	OverdueTasks    int64 `json:"overdueTasks"`
}

// DashboardCharts hold the per-status and per-priority distributions. Every
// bucket is always present, zero when empty; the distribution additionally
// carries an "All" bucket equal to the total.
type DashboardCharts struct {
	TaskDistribution   map[string]int64 `json:"taskDistribution"`
	TaskPriorityLevels map[string]int64 `json:"taskPriorityLevels"`
}

// RecentTask is the projection of a recently created task.
type RecentTask struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Status    model.Status   `json:"status"`
	Priority  model.Priority `json:"priority"`
	DueDate   time.Time      `json:"dueDate"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Dashboard is the aggregate view over a task scope.
type Dashboard struct {
	Statistics  DashboardStatistics `json:"statistics"`
	Charts      DashboardCharts     `json:"charts"`
	RecentTasks []RecentTask        `json:"recentTasks"`
}

// DashboardService computes cross-cutting statistics, globally for admins and
// scoped to the caller's assignments for members.
type DashboardService interface {
	Global(ctx context.Context) (*Dashboard, error)
	ForUser(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
}

type dashboardService struct {
	tasks repository.TaskRepository
	cache *cache.Client
}

// NewDashboardService creates a new dashboard aggregator.
func NewDashboardService(tasks repository.TaskRepository, cache *cache.Client) DashboardService {
	return &dashboardService{
		tasks: tasks,
		cache: cache,
	}
}

// Global computes the dashboard over all tasks.
func (s *dashboardService) Global(ctx context.Context) (*Dashboard, error) {
	return s.build(ctx, uuid.Nil, globalDashboardKey())
}

// ForUser computes the identical dashboard restricted to tasks assigned to
// the given user.
func (s *dashboardService) ForUser(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	return s.build(ctx, userID, userDashboardKey(userID))
}

func (s *dashboardService) build(ctx context.Context, scope uuid.UUID, cacheKey string) (*Dashboard, error) {
	if data, _ := s.cache.Get(ctx, cacheKey); data != nil {
		var cached Dashboard
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	statusCounts, err := s.tasks.CountByField(ctx, "status", scope)
	if err != nil {
		return nil, err
	}
	priorityCounts, err := s.tasks.CountByField(ctx, "priority", scope)
	if err != nil {
		return nil, err
	}
	overdue, err := s.tasks.CountOverdue(ctx, scope, time.Now())
	if err != nil {
		return nil, err
	}
	recent, err := s.tasks.Recent(ctx, scope, recentTaskLimit)
	if err != nil {
		return nil, err
	}

	// Zero-fill so callers always see the complete key set.
	distribution := make(map[string]int64, len(model.Statuses)+1)
	var total int64
	for _, status := range model.Statuses {
		n := statusCounts[string(status)]
		distribution[string(status)] = n
		total += n
	}
	distribution["All"] = total

	priorities := make(map[string]int64, len(model.Priorities))
	for _, priority := range model.Priorities {
		priorities[string(priority)] = priorityCounts[string(priority)]
	}

	recentTasks := make([]RecentTask, 0, len(recent))
	for _, task := range recent {
		recentTasks = append(recentTasks, RecentTask{
			ID:        task.ID,
			Title:     task.Title,
			Status:    task.Status,
			Priority:  task.Priority,
			DueDate:   task.DueDate,
			CreatedAt: task.CreatedAt,
		})
	}

	dashboard := &Dashboard{
		Statistics: DashboardStatistics{
			TotalTasks:      total,
			TodoTasks:       distribution[string(model.StatusTodo)],
			InProgressTasks: distribution[string(model.StatusInProgress)],
			DoneTasks:       distribution[string(model.StatusDone)],
			OverdueTasks:    overdue,
		},
		Charts: DashboardCharts{
			TaskDistribution:   distribution,
			TaskPriorityLevels: priorities,
		},
		RecentTasks: recentTasks,
	}

	if payload, err := json.Marshal(dashboard); err == nil {
		_ = s.cache.Set(ctx, cacheKey, payload, dashboardCacheTTL)
	}

	return dashboard, nil
}

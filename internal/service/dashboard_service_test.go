package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"taskhub/internal/model"
)

func TestGlobalDashboard_EmptyTaskSet(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("CountByField", mock.Anything, "status", uuid.Nil).Return(map[string]int64{}, nil)
	taskRepo.On("CountByField", mock.Anything, "priority", uuid.Nil).Return(map[string]int64{}, nil)
	taskRepo.On("CountOverdue", mock.Anything, uuid.Nil, mock.Anything).Return(int64(0), nil)
	taskRepo.On("Recent", mock.Anything, uuid.Nil, 10).Return([]model.Task{}, nil)

	svc := NewDashboardService(taskRepo, nil)
	dashboard, err := svc.Global(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(0), dashboard.Statistics.TotalTasks)
	assert.Equal(t, int64(0), dashboard.Statistics.OverdueTasks)

	// every bucket present with value zero, never absent
	assert.Equal(t, map[string]int64{
		"todo": 0, "in-progress": 0, "done": 0, "All": 0,
	}, dashboard.Charts.TaskDistribution)
	assert.Equal(t, map[string]int64{
		"low": 0, "medium": 0, "high": 0,
	}, dashboard.Charts.TaskPriorityLevels)

	assert.NotNil(t, dashboard.RecentTasks)
	assert.Empty(t, dashboard.RecentTasks)
}

func TestGlobalDashboard_BucketsSumToTotal(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("CountByField", mock.Anything, "status", uuid.Nil).
		Return(map[string]int64{"todo": 4, "in-progress": 3, "done": 5}, nil)
	taskRepo.On("CountByField", mock.Anything, "priority", uuid.Nil).
		Return(map[string]int64{"low": 2, "medium": 6, "high": 4}, nil)
	taskRepo.On("CountOverdue", mock.Anything, uuid.Nil, mock.Anything).Return(int64(2), nil)
	taskRepo.On("Recent", mock.Anything, uuid.Nil, 10).Return([]model.Task{}, nil)

	svc := NewDashboardService(taskRepo, nil)
	dashboard, err := svc.Global(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(12), dashboard.Statistics.TotalTasks)
	assert.Equal(t, int64(12), dashboard.Charts.TaskDistribution["All"])

	var statusSum, prioritySum int64
	for _, status := range model.Statuses {
		statusSum += dashboard.Charts.TaskDistribution[string(status)]
	}
	for _, priority := range model.Priorities {
		prioritySum += dashboard.Charts.TaskPriorityLevels[string(priority)]
	}
	assert.Equal(t, dashboard.Statistics.TotalTasks, statusSum)
	assert.Equal(t, dashboard.Statistics.TotalTasks, prioritySum)
}

func TestUserDashboard_ScopedToAssignee(t *testing.T) {
	userID := uuid.New()

	taskRepo := new(MockTaskRepository)
	taskRepo.On("CountByField", mock.Anything, "status", userID).
		Return(map[string]int64{"in-progress": 1}, nil)
	taskRepo.On("CountByField", mock.Anything, "priority", userID).
		Return(map[string]int64{"high": 1}, nil)
	taskRepo.On("CountOverdue", mock.Anything, userID, mock.Anything).Return(int64(1), nil)
	taskRepo.On("Recent", mock.Anything, userID, 10).
		Return([]model.Task{{ID: uuid.New(), Title: "mine", Status: model.StatusInProgress, Priority: model.PriorityHigh}}, nil)

	svc := NewDashboardService(taskRepo, nil)
	dashboard, err := svc.ForUser(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), dashboard.Statistics.TotalTasks)
	assert.Equal(t, int64(1), dashboard.Statistics.InProgressTasks)
	assert.Equal(t, int64(0), dashboard.Statistics.TodoTasks)
	assert.Len(t, dashboard.RecentTasks, 1)
	assert.Equal(t, "mine", dashboard.RecentTasks[0].Title)
	taskRepo.AssertExpectations(t)
}

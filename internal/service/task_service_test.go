package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"taskhub/internal/auth"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// MockTaskRepository is a mock implementation of TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Save(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) Count(ctx context.Context, filter repository.TaskFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) CountOverdue(ctx context.Context, assigneeID uuid.UUID, now time.Time) (int64, error) {
	args := m.Called(ctx, assigneeID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) CountByField(ctx context.Context, field string, assigneeID uuid.UUID) (map[string]int64, error) {
	args := m.Called(ctx, field, assigneeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockTaskRepository) Recent(ctx context.Context, assigneeID uuid.UUID, limit int) ([]model.Task, error) {
	args := m.Called(ctx, assigneeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Save(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func adminIdentity() auth.Identity {
	return auth.Identity{ID: uuid.New(), Role: model.RoleAdmin}
}

func memberIdentity() auth.Identity {
	return auth.Identity{ID: uuid.New(), Role: model.RoleMember}
}

func taskAssignedTo(member auth.Identity, items []model.ChecklistItem) *model.Task {
	return &model.Task{
		ID:        uuid.New(),
		Title:     "write release notes",
		Status:    model.StatusTodo,
		Priority:  model.PriorityMedium,
		Assignees: []model.User{{ID: member.ID, Name: "Member", Email: "member@example.com"}},
		Checklist: items,
	}
}

func TestUpdateChecklist_DerivesProgressAndStatus(t *testing.T) {
	tests := []struct {
		name         string
		items        []model.ChecklistItem
		wantProgress int
		wantStatus   model.Status
	}{
		{
			name: "half done is in progress",
			items: []model.ChecklistItem{
				{Text: "a", Done: true}, {Text: "b", Done: true},
				{Text: "c"}, {Text: "d"},
			},
			wantProgress: 50,
			wantStatus:   model.StatusInProgress,
		},
		{
			name: "all done is done",
			items: []model.ChecklistItem{
				{Text: "a", Done: true}, {Text: "b", Done: true},
				{Text: "c", Done: true}, {Text: "d", Done: true},
			},
			wantProgress: 100,
			wantStatus:   model.StatusDone,
		},
		{
			name:         "none done is todo",
			items:        []model.ChecklistItem{{Text: "a"}, {Text: "b"}},
			wantProgress: 0,
			wantStatus:   model.StatusTodo,
		},
		{
			name: "one of three rounds to 33",
			items: []model.ChecklistItem{
				{Text: "a", Done: true}, {Text: "b"}, {Text: "c"},
			},
			wantProgress: 33,
			wantStatus:   model.StatusInProgress,
		},
		{
			name: "two of three rounds to 67",
			items: []model.ChecklistItem{
				{Text: "a", Done: true}, {Text: "b", Done: true}, {Text: "c"},
			},
			wantProgress: 67,
			wantStatus:   model.StatusInProgress,
		},
		{
			name:         "empty list resets to todo",
			items:        []model.ChecklistItem{},
			wantProgress: 0,
			wantStatus:   model.StatusTodo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member := memberIdentity()
			task := taskAssignedTo(member, nil)
			task.Status = model.StatusDone // overwritten unconditionally

			taskRepo := new(MockTaskRepository)
			taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
			taskRepo.On("Save", mock.Anything, task).Return(nil)

			svc := NewTaskService(taskRepo, new(MockUserRepository), nil)
			view, err := svc.UpdateChecklist(context.Background(), member, task.ID, tt.items)

			assert.NoError(t, err)
			assert.Equal(t, tt.wantProgress, view.Progress)
			assert.Equal(t, tt.wantStatus, view.Status)
			taskRepo.AssertExpectations(t)
		})
	}
}

func TestUpdateChecklist_StepwiseScenario(t *testing.T) {
	member := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{
		{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"},
	})

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Save", mock.Anything, task).Return(nil)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	// mark two of four done
	view, err := svc.UpdateChecklist(context.Background(), member, task.ID, []model.ChecklistItem{
		{Text: "a", Done: true}, {Text: "b", Done: true}, {Text: "c"}, {Text: "d"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 50, view.Progress)
	assert.Equal(t, model.StatusInProgress, view.Status)

	// mark the remaining two
	view, err = svc.UpdateChecklist(context.Background(), member, task.ID, []model.ChecklistItem{
		{Text: "a", Done: true}, {Text: "b", Done: true}, {Text: "c", Done: true}, {Text: "d", Done: true},
	})
	assert.NoError(t, err)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, model.StatusDone, view.Status)
	assert.Equal(t, 4, view.CompletedChecklistCount)
}

func TestUpdateStatus_DoneForcesChecklistAndProgress(t *testing.T) {
	member := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{
		{Text: "a"}, {Text: "b"}, {Text: "c"},
	})

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Save", mock.Anything, task).Return(nil)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	view, err := svc.UpdateStatus(context.Background(), member, task.ID, "Done")

	assert.NoError(t, err)
	assert.Equal(t, model.StatusDone, view.Status)
	assert.Equal(t, 100, view.Progress)
	for _, item := range view.Checklist {
		assert.True(t, item.Done)
	}
	assert.Equal(t, 3, view.CompletedChecklistCount)
}

func TestUpdateStatus_NonDoneLeavesChecklistAlone(t *testing.T) {
	member := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{{Text: "a", Done: true}, {Text: "b"}})
	task.Progress = 50

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Save", mock.Anything, task).Return(nil)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	view, err := svc.UpdateStatus(context.Background(), member, task.ID, "in-progress")

	assert.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, view.Status)
	assert.Equal(t, 50, view.Progress)
	assert.False(t, view.Checklist[1].Done)
}

func TestUpdateStatus_InvalidStatusRejected(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	_, err := svc.UpdateStatus(context.Background(), memberIdentity(), uuid.New(), "archived")

	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	taskRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMutation_ForbiddenForNonAssignee(t *testing.T) {
	member := memberIdentity()
	stranger := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{{Text: "a"}})

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	_, err := svc.UpdateStatus(context.Background(), stranger, task.ID, "done")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	_, err = svc.UpdateChecklist(context.Background(), stranger, task.ID, []model.ChecklistItem{{Text: "a", Done: true}})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	// task state untouched
	taskRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Equal(t, model.StatusTodo, task.Status)
	assert.False(t, task.Checklist[0].Done)
}

func TestMutation_AdminBypassesAssignment(t *testing.T) {
	member := memberIdentity()
	task := taskAssignedTo(member, nil)

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Save", mock.Anything, task).Return(nil)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	_, err := svc.UpdateStatus(context.Background(), adminIdentity(), task.ID, "done")
	assert.NoError(t, err)
}

func TestMutation_RetriesOnStaleVersion(t *testing.T) {
	member := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{{Text: "a"}})

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Save", mock.Anything, task).Return(apperrors.ErrStaleTask).Twice()
	taskRepo.On("Save", mock.Anything, task).Return(nil).Once()
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	_, err := svc.UpdateStatus(context.Background(), member, task.ID, "done")

	assert.NoError(t, err)
	taskRepo.AssertNumberOfCalls(t, "Save", 3)
}

func TestMutation_NotFound(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	_, err := svc.UpdateStatus(context.Background(), adminIdentity(), uuid.New(), "done")
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	err = svc.Delete(context.Background(), adminIdentity(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestCreate_AdminOnly(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	_, err := svc.Create(context.Background(), memberIdentity(), CreateTaskInput{Title: "x"})

	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	taskRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_PersistsDefaultsAndAssignees(t *testing.T) {
	admin := adminIdentity()
	assignee := model.User{ID: uuid.New(), Name: "Member", Email: "member@example.com"}

	userRepo := new(MockUserRepository)
	userRepo.On("FindByIDs", mock.Anything, []uuid.UUID{assignee.ID}).Return([]model.User{assignee}, nil)

	taskRepo := new(MockTaskRepository)
	taskRepo.On("Create", mock.Anything, mock.MatchedBy(func(task *model.Task) bool {
		return task.Status == model.StatusTodo &&
			task.Priority == model.PriorityMedium &&
			task.Progress == 0 &&
			task.CreatedByID == admin.ID &&
			len(task.Assignees) == 1
	})).Return(nil)

	svc := NewTaskService(taskRepo, userRepo, nil)
	view, err := svc.Create(context.Background(), admin, CreateTaskInput{
		Title:      "plan sprint",
		DueDate:    time.Now().Add(48 * time.Hour),
		AssignedTo: []uuid.UUID{assignee.ID, assignee.ID}, // duplicates collapse
	})

	assert.NoError(t, err)
	assert.Len(t, view.AssignedTo, 1)
	assert.Equal(t, assignee.Email, view.AssignedTo[0].Email)
	taskRepo.AssertExpectations(t)
}

func TestCreate_UnknownAssigneeRejected(t *testing.T) {
	admin := adminIdentity()
	unknown := uuid.New()

	userRepo := new(MockUserRepository)
	userRepo.On("FindByIDs", mock.Anything, []uuid.UUID{unknown}).Return([]model.User{}, nil)

	svc := NewTaskService(new(MockTaskRepository), userRepo, nil)
	_, err := svc.Create(context.Background(), admin, CreateTaskInput{
		Title:      "x",
		AssignedTo: []uuid.UUID{unknown},
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidAssignee)
}

func TestUpdate_MergeIfPresent(t *testing.T) {
	admin := adminIdentity()
	member := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{{Text: "keep me"}})
	task.Description = "original description"
	task.Priority = model.PriorityLow

	taskRepo := new(MockTaskRepository)
	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Save", mock.Anything, task).Return(nil)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	newTitle := "renamed"
	newPriority := "high"
	view, err := svc.Update(context.Background(), admin, task.ID, UpdateTaskInput{
		Title:    &newTitle,
		Priority: &newPriority,
	})

	assert.NoError(t, err)
	assert.Equal(t, "renamed", view.Title)
	assert.Equal(t, model.PriorityHigh, view.Priority)
	// omitted fields retain their prior value
	assert.Equal(t, "original description", view.Description)
	assert.Equal(t, "keep me", view.Checklist[0].Text)
}

func TestUpdate_NonAdminForbidden(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)

	title := "x"
	_, err := svc.Update(context.Background(), memberIdentity(), uuid.New(), UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	err = svc.Delete(context.Background(), memberIdentity(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
}

func TestList_MemberScopedToAssignments(t *testing.T) {
	member := memberIdentity()
	task := taskAssignedTo(member, []model.ChecklistItem{{Text: "a", Done: true}, {Text: "b"}})

	taskRepo := new(MockTaskRepository)
	taskRepo.On("List", mock.Anything, repository.TaskFilter{AssigneeID: member.ID}).
		Return([]model.Task{*task}, nil)
	taskRepo.On("CountByField", mock.Anything, "status", member.ID).
		Return(map[string]int64{"todo": 1}, nil)

	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)
	list, err := svc.List(context.Background(), member, "")

	assert.NoError(t, err)
	assert.Len(t, list.Tasks, 1)
	assert.Equal(t, 1, list.Tasks[0].CompletedChecklistCount)
	assert.Equal(t, int64(1), list.StatusSummary.All)
	assert.Equal(t, int64(1), list.StatusSummary.Todo)
	taskRepo.AssertExpectations(t)
}

func TestList_AdminSeesAllWithSummary(t *testing.T) {
	admin := adminIdentity()

	taskRepo := new(MockTaskRepository)
	taskRepo.On("List", mock.Anything, repository.TaskFilter{Status: model.StatusDone}).
		Return([]model.Task{}, nil)
	taskRepo.On("CountByField", mock.Anything, "status", uuid.Nil).
		Return(map[string]int64{"todo": 2, "in-progress": 3, "done": 5}, nil)

	svc := NewTaskService(taskRepo, new(MockUserRepository), nil)
	list, err := svc.List(context.Background(), admin, "done")

	assert.NoError(t, err)
	// the summary ignores the status filter and its buckets sum to all
	assert.Equal(t, int64(10), list.StatusSummary.All)
	assert.Equal(t, int64(2), list.StatusSummary.Todo)
	assert.Equal(t, int64(3), list.StatusSummary.InProgress)
	assert.Equal(t, int64(5), list.StatusSummary.Done)
}

func TestList_InvalidStatusFilter(t *testing.T) {
	svc := NewTaskService(new(MockTaskRepository), new(MockUserRepository), nil)

	_, err := svc.List(context.Background(), adminIdentity(), "bogus")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// UserWithTaskCounts is a member enriched with their assigned-task breakdown.
type UserWithTaskCounts struct {
	model.User
	TodoTasks       int64 `json:"todoTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	DoneTasks       int64 `json:"doneTasks"`
}

// UpdateUserInput carries an admin's partial user update. Nil fields keep
// their prior value.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *string
}

// UserService handles admin user management.
type UserService interface {
	ListMembers(ctx context.Context) ([]UserWithTaskCounts, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	users repository.UserRepository
	tasks repository.TaskRepository
}

// NewUserService builds a UserService over the user and task repositories.
func NewUserService(users repository.UserRepository, tasks repository.TaskRepository) UserService {
	return &userService{users: users, tasks: tasks}
}

// ListMembers returns all members, each with per-status assigned-task counts.
func (s *userService) ListMembers(ctx context.Context) ([]UserWithTaskCounts, error) {
	members, err := s.users.ListByRole(ctx, model.RoleMember)
	if err != nil {
		return nil, err
	}

	out := make([]UserWithTaskCounts, 0, len(members))
	for _, member := range members {
		counts, err := s.tasks.CountByField(ctx, "status", member.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserWithTaskCounts{
			User:            member,
			TodoTasks:       counts[string(model.StatusTodo)],
			InProgressTasks: counts[string(model.StatusInProgress)],
			DoneTasks:       counts[string(model.StatusDone)],
		})
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Update applies the supplied fields to a user record.
func (s *userService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Role != nil {
		role := model.Role(strings.ToLower(*in.Role))
		if !role.Valid() {
			return nil, apperrors.ErrInvalidRole
		}
		user.Role = role
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

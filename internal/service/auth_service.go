package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskhub/internal/auth"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const bcryptCost = 10

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when trying to register an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	ProfileImageURL  string
	AdminInviteToken string
}

// UpdateProfileInput carries the self-service profile fields. Empty fields
// keep their prior value.
type UpdateProfileInput struct {
	Name     string
	Email    string
	Password string
}

// AuthenticatedUser is the projection returned by register, login and profile
// update: the user's public fields plus a fresh bearer token.
type AuthenticatedUser struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	ProfileImageURL string     `json:"profileImageUrl"`
	Role            model.Role `json:"role"`
	Token           string     `json:"token"`
}

// AuthService handles registration, login and self-service profile access.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthenticatedUser, error)
	Login(ctx context.Context, email, password string) (*AuthenticatedUser, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*AuthenticatedUser, error)
}

type authService struct {
	users       repository.UserRepository
	jwtService  *auth.JWTService
	inviteToken string
}

// NewAuthService creates a new authentication service. inviteToken is the
// shared secret that grants the admin role at registration; when empty, no
// registration can yield an admin.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, inviteToken string) AuthService {
	return &authService{
		users:       users,
		jwtService:  jwtService,
		inviteToken: inviteToken,
	}
}

// Register creates a new user with hashed password. The admin role is granted
// iff the presented invite value matches the configured secret.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthenticatedUser, error) {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleMember
	if s.inviteToken != "" &&
		subtle.ConstantTimeCompare([]byte(in.AdminInviteToken), []byte(s.inviteToken)) == 1 {
		role = model.RoleAdmin
	}

	user := &model.User{
		ID:              uuid.New(),
		Name:            in.Name,
		Email:           in.Email,
		PasswordHash:    string(hashedPassword),
		ProfileImageURL: in.ProfileImageURL,
		Role:            role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.withToken(user)
}

// Login authenticates a user and returns their projection with a bearer token.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthenticatedUser, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.withToken(user)
}

// GetProfile returns the caller's own user record.
func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the supplied fields to the caller's own record and
// re-issues a token.
func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*AuthenticatedUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	return s.withToken(user)
}

func (s *authService) withToken(user *model.User) (*AuthenticatedUser, error) {
	token, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthenticatedUser{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		ProfileImageURL: user.ProfileImageURL,
		Role:            user.Role,
		Token:           token,
	}, nil
}

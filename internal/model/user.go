package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of authorization roles.
type Role string

const (
	// RoleAdmin has unrestricted CRUD rights over tasks and users.
	RoleAdmin Role = "admin"
	// RoleMember may only read and mutate tasks they are assigned to.
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User represents an authenticated user in the system.
type User struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name            string    `json:"name" gorm:"size:255;not null"`
	Email           string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	ProfileImageURL string    `json:"profileImageUrl" gorm:"size:512"`
	Role            Role      `json:"role" gorm:"size:50;default:'member';index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

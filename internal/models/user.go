package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleAI    = "ai"

	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// User is an account that can sign in. SDRs carry the name they submit
// reports under in SalesRepName.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password     string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Email        string         `gorm:"size:255" json:"email"`
	SalesRepName string         `gorm:"size:200;index" json:"sales_rep_name"`
	Role         string         `gorm:"size:20;default:user" json:"role"`       // user, admin, ai
	AuthType     string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLogin    *time.Time     `json:"last_login"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

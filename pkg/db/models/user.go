package models

import (
	"time"

	"github.com/docroute/docroute-backend/pkg/enums"
	"github.com/google/uuid"
)

// User mirrors the identity provider's view of a staff member. The backend
// never writes this table outside of account provisioning, which is owned by
// the identity service; it is read for routing targets and history rendering.
type User struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email      string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName   string         `gorm:"column:full_name;not null"`
	Department *string        `gorm:"column:department"`
	Role       enums.UserRole `gorm:"column:role;type:text;not null;default:'staff'"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one append-only audit line. Entries are written inside the
// same transaction as the mutation they describe and are never updated or
// deleted except by a full document delete.
type HistoryEntry struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DocumentID uuid.UUID `gorm:"column:document_id;type:uuid;not null;index"`
	Actor      uuid.UUID `gorm:"column:actor;type:uuid;not null"`
	Action     string    `gorm:"column:action;not null"`
	Details    *string   `gorm:"column:details"`
	IPAddress  *string   `gorm:"column:ip_address"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

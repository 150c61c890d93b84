package models

import (
	"time"

	"github.com/docroute/docroute-backend/pkg/enums"
	"github.com/google/uuid"
)

// Document is the tracked file record at the center of the routing ledger.
// Writes go through the lifecycle engine only; UploadedBy is immutable after
// creation while CurrentHolder follows the routing trail.
type Document struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number         string                 `gorm:"column:number;type:text;not null;uniqueIndex:ux_documents_number"`
	Title          string                 `gorm:"column:title;not null"`
	Description    *string                `gorm:"column:description"`
	Type           string                 `gorm:"column:type;not null"`
	Priority       enums.DocumentPriority `gorm:"column:priority;type:text;not null;default:'medium'"`
	Status         enums.DocumentStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	UploadedBy     uuid.UUID              `gorm:"column:uploaded_by;type:uuid;not null"`
	CurrentHolder  uuid.UUID              `gorm:"column:current_holder;type:uuid;not null"`
	IsArchived     bool                   `gorm:"column:is_archived;not null;default:false"`
	ArchivedAt     *time.Time             `gorm:"column:archived_at"`
	FileRef        string                 `gorm:"column:file_ref;type:text;not null"`
	FileSize       int64                  `gorm:"column:file_size;not null;default:0"`
	RoutingRecords []RoutingRecord        `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	HistoryEntries []HistoryEntry         `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	ArchiveRecord  *ArchiveRecord         `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

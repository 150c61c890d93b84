package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveRecord holds archival metadata. Exactly one per archived document;
// archival is terminal, so the row lives until the document is deleted.
type ArchiveRecord struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DocumentID uuid.UUID `gorm:"column:document_id;type:uuid;not null;uniqueIndex:ux_archive_records_document"`
	ArchivedBy uuid.UUID `gorm:"column:archived_by;type:uuid;not null"`
	Reason     string    `gorm:"column:reason;not null"`
	ArchivedAt time.Time `gorm:"column:archived_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/docroute/docroute-backend/pkg/enums"
	"github.com/google/uuid"
)

// RoutingRecord captures one custody handoff. At most one record per document
// carries IsCurrent=true; the partial unique index ux_routing_records_current
// backs that invariant at the schema level. Records are never updated after
// insert except to flip IsCurrent off when superseded.
type RoutingRecord struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DocumentID uuid.UUID           `gorm:"column:document_id;type:uuid;not null;index"`
	FromUser   uuid.UUID           `gorm:"column:from_user;type:uuid;not null"`
	ToUser     uuid.UUID           `gorm:"column:to_user;type:uuid;not null"`
	Action     enums.RoutingAction `gorm:"column:action;type:text;not null"`
	Remarks    *string             `gorm:"column:remarks"`
	IsCurrent  bool                `gorm:"column:is_current;not null;default:false"`
	RoutedAt   time.Time           `gorm:"column:routed_at;autoCreateTime"`
}

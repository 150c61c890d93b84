package payloads

import (
	"time"

	"github.com/docroute/docroute-backend/pkg/enums"
	"github.com/google/uuid"
)

// DocumentUploadedEvent signals a new document entering the ledger.
type DocumentUploadedEvent struct {
	DocumentID uuid.UUID              `json:"document_id"`
	Number     string                 `json:"number"`
	Title      string                 `json:"title"`
	Type       string                 `json:"type"`
	Priority   enums.DocumentPriority `json:"priority"`
	UploadedBy uuid.UUID              `json:"uploaded_by"`
}

// DocumentRoutedEvent is emitted when custody moves between holders.
type DocumentRoutedEvent struct {
	DocumentID uuid.UUID            `json:"document_id"`
	Number     string               `json:"number"`
	FromUser   uuid.UUID            `json:"from_user"`
	ToUser     uuid.UUID            `json:"to_user"`
	Action     enums.RoutingAction  `json:"action"`
	Status     enums.DocumentStatus `json:"status"`
	Remarks    string               `json:"remarks,omitempty"`
	RoutedAt   time.Time            `json:"routed_at"`
}

// DocumentArchivedEvent surfaces the terminal archive transition.
type DocumentArchivedEvent struct {
	DocumentID uuid.UUID `json:"document_id"`
	Number     string    `json:"number"`
	ArchivedBy uuid.UUID `json:"archived_by"`
	Reason     string    `json:"reason"`
	ArchivedAt time.Time `json:"archived_at"`
}

// DocumentDeletedEvent reports a hard delete. FileRef is included so
// consumers can reconcile orphaned blobs if the post-commit removal failed.
type DocumentDeletedEvent struct {
	DocumentID uuid.UUID `json:"document_id"`
	Number     string    `json:"number"`
	DeletedBy  uuid.UUID `json:"deleted_by"`
	FileRef    string    `json:"file_ref"`
}

package history

import (
	"context"
	"fmt"

	"github.com/docroute/docroute-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit action labels written by the lifecycle engine.
const (
	ActionUploaded = "Document Uploaded"
	ActionRouted   = "Document Routed"
	ActionUpdated  = "Document Updated"
	ActionArchived = "Document Archived"
	ActionDeleted  = "Document Deleted"
)

// Service records audit trail entries. Record is always called with the
// mutation's transaction so a failed audit write rolls back the whole
// operation.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.HistoryEntry, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.HistoryEntry, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data an audit entry requires.
type RecordEntryInput struct {
	DocumentID uuid.UUID
	Actor      uuid.UUID
	Action     string
	Details    *string
	IPAddress  *string
}

// NewService wires a history service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.HistoryEntry, error) {
	if input.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("document id is required")
	}
	if input.Actor == uuid.Nil {
		return nil, fmt.Errorf("actor is required")
	}
	if input.Action == "" {
		return nil, fmt.Errorf("action is required")
	}

	entry := &models.HistoryEntry{
		DocumentID: input.DocumentID,
		Actor:      input.Actor,
		Action:     input.Action,
		Details:    input.Details,
		IPAddress:  input.IPAddress,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.HistoryEntry, error) {
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("document id is required")
	}
	return s.repo.ListByDocumentID(ctx, documentID)
}

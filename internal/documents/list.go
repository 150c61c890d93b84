package documents

import (
	"context"
	"strings"
	"time"

	"github.com/docroute/docroute-backend/pkg/auth"
	"github.com/docroute/docroute-backend/pkg/db/models"
	"github.com/docroute/docroute-backend/pkg/enums"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListParams configures document listing filters and pagination. Staff only
// see documents they uploaded or currently hold; admins see everything.
type ListParams struct {
	HasStatus   bool
	Status      enums.DocumentStatus
	HasPriority bool
	Priority    enums.DocumentPriority
	Type        string
	Search      string
	Limit       int
	Cursor      string
}

// ListResult returns one page of documents plus the cursor for the next.
type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

// ListItem is the summary view of a document.
type ListItem struct {
	ID            uuid.UUID              `json:"id"`
	Number        string                 `json:"number"`
	Title         string                 `json:"title"`
	Type          string                 `json:"type"`
	Priority      enums.DocumentPriority `json:"priority"`
	Status        enums.DocumentStatus   `json:"status"`
	UploadedBy    uuid.UUID              `json:"uploaded_by"`
	CurrentHolder uuid.UUID              `json:"current_holder"`
	IsArchived    bool                   `json:"is_archived"`
	ArchivedAt    *time.Time             `json:"archived_at,omitempty"`
	FileSize      int64                  `json:"file_size"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Detail is the full view returned for a single document.
type Detail struct {
	ListItem
	Description   *string    `json:"description,omitempty"`
	FileRef       string     `json:"file_ref"`
	ArchiveReason *string    `json:"archive_reason,omitempty"`
	ArchivedBy    *uuid.UUID `json:"archived_by,omitempty"`
}

// TimelineStep is one custody handoff with display names resolved.
type TimelineStep struct {
	ID           uuid.UUID           `json:"id"`
	FromUser     uuid.UUID           `json:"from_user"`
	FromUserName string              `json:"from_user_name"`
	ToUser       uuid.UUID           `json:"to_user"`
	ToUserName   string              `json:"to_user_name"`
	Action       enums.RoutingAction `json:"action"`
	Remarks      *string             `json:"remarks,omitempty"`
	IsCurrent    bool                `json:"is_current"`
	RoutedAt     time.Time           `json:"routed_at"`
}

// FileURLOutput carries a short-lived signed download URL.
type FileURLOutput struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *service) List(ctx context.Context, actor auth.Principal, params ListParams) (*ListResult, error) {
	return s.list(ctx, actor, params, false)
}

func (s *service) ListArchived(ctx context.Context, actor auth.Principal, params ListParams) (*ListResult, error) {
	return s.list(ctx, actor, params, true)
}

func (s *service) list(ctx context.Context, actor auth.Principal, params ListParams, archived bool) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	filter := listFilter{
		archived: archived,
		docType:  strings.TrimSpace(params.Type),
		search:   strings.TrimSpace(params.Search),
		limit:    limit + 1,
	}
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.visibleTo = &userID
	}
	if params.HasStatus {
		if !params.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.status = &params.Status
	}
	if params.HasPriority {
		if !params.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority filter")
		}
		filter.priority = &params.Priority
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.cursor = cursor
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list documents")
	}

	nextCursor := ""
	if len(rows) > limit {
		next := rows[limit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, doc := range rows {
		items[i] = toListItem(doc)
	}

	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Detail, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	detail := &Detail{
		ListItem:    toListItem(*doc),
		Description: doc.Description,
		FileRef:     doc.FileRef,
	}

	if doc.IsArchived {
		record, archErr := s.repo.FindArchiveRecord(ctx, doc.ID)
		if archErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, archErr, "load archive record")
		}
		if record != nil {
			detail.ArchiveReason = &record.Reason
			detail.ArchivedBy = &record.ArchivedBy
		}
	}

	return detail, nil
}

func (s *service) RoutingTimeline(ctx context.Context, actor auth.Principal, id uuid.UUID) ([]TimelineStep, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.RoutingByDocument(ctx, doc.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load routing records")
	}

	ids := make([]uuid.UUID, 0, len(records)*2)
	for _, record := range records {
		ids = append(ids, record.FromUser, record.ToUser)
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user names")
	}

	steps := make([]TimelineStep, len(records))
	for i, record := range records {
		steps[i] = TimelineStep{
			ID:           record.ID,
			FromUser:     record.FromUser,
			FromUserName: names[record.FromUser],
			ToUser:       record.ToUser,
			ToUserName:   names[record.ToUser],
			Action:       record.Action,
			Remarks:      record.Remarks,
			IsCurrent:    record.IsCurrent,
			RoutedAt:     record.RoutedAt,
		}
	}
	return steps, nil
}

func (s *service) StatusCounts(ctx context.Context, actor auth.Principal) (map[enums.DocumentStatus]int64, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var visibleTo *uuid.UUID
	if !actor.IsAdmin() {
		userID := actor.UserID
		visibleTo = &userID
	}

	counts, err := s.repo.CountByStatus(ctx, visibleTo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count documents")
	}
	return counts, nil
}

func (s *service) FileURL(ctx context.Context, actor auth.Principal, id uuid.UUID) (*FileURLOutput, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	url, err := s.blob.SignedReadURL(s.bucket, doc.FileRef, s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sign download url")
	}
	return &FileURLOutput{
		URL:       url,
		ExpiresAt: time.Now().Add(s.downloadTTL),
	}, nil
}

// loadVisible fetches a document and enforces read access: admins see all,
// staff must have uploaded the document, hold it, or appear in its trail.
func (s *service) loadVisible(ctx context.Context, actor auth.Principal, id uuid.UUID) (*models.Document, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrDependency(err, "load document")
	}

	if actor.IsAdmin() || doc.UploadedBy == actor.UserID || doc.CurrentHolder == actor.UserID {
		return doc, nil
	}

	records, err := s.repo.RoutingByDocument(ctx, doc.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load routing records")
	}
	for _, record := range records {
		if record.FromUser == actor.UserID || record.ToUser == actor.UserID {
			return doc, nil
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "document is not visible to this user")
}

func toListItem(doc models.Document) ListItem {
	return ListItem{
		ID:            doc.ID,
		Number:        doc.Number,
		Title:         doc.Title,
		Type:          doc.Type,
		Priority:      doc.Priority,
		Status:        doc.Status,
		UploadedBy:    doc.UploadedBy,
		CurrentHolder: doc.CurrentHolder,
		IsArchived:    doc.IsArchived,
		ArchivedAt:    doc.ArchivedAt,
		FileSize:      doc.FileSize,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

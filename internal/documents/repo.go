package documents

import (
	"context"
	"errors"
	"time"

	"github.com/docroute/docroute-backend/pkg/db/models"
	"github.com/docroute/docroute-backend/pkg/enums"
	"github.com/docroute/docroute-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a document row does not exist.
var ErrNotFound = errors.New("document not found")

type listFilter struct {
	visibleTo *uuid.UUID
	status    *enums.DocumentStatus
	priority  *enums.DocumentPriority
	docType   string
	search    string
	archived  bool
	limit     int
	cursor    *pagination.Cursor
}

// Repository manages persistence for documents, routing records, and
// archive records. History entries live in internal/history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Document, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CurrentRouting(ctx context.Context, documentID uuid.UUID) (*models.RoutingRecord, error)
	ClearCurrentRouting(ctx context.Context, documentID uuid.UUID) error
	InsertRouting(ctx context.Context, record *models.RoutingRecord) error
	UpdateHolderStatus(ctx context.Context, documentID, holder uuid.UUID, status enums.DocumentStatus) error
	RoutingByDocument(ctx context.Context, documentID uuid.UUID) ([]models.RoutingRecord, error)

	MarkArchived(ctx context.Context, documentID uuid.UUID, archivedAt time.Time) error
	InsertArchiveRecord(ctx context.Context, record *models.ArchiveRecord) error
	FindArchiveRecord(ctx context.Context, documentID uuid.UUID) (*models.ArchiveRecord, error)

	DeleteCascade(ctx context.Context, documentID uuid.UUID) error

	List(ctx context.Context, filter listFilter) ([]models.Document, error)
	CountByStatus(ctx context.Context, visibleTo *uuid.UUID) (map[enums.DocumentStatus]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a document repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindForUpdate loads the document under a row lock so concurrent mutations
// serialize on the same row. SQLite serializes writers on its own and rejects
// the FOR UPDATE syntax, so the clause is applied on postgres only.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var doc models.Document
	err := q.Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CurrentRouting(ctx context.Context, documentID uuid.UUID) (*models.RoutingRecord, error) {
	var record models.RoutingRecord
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND is_current = ?", documentID, true).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ClearCurrentRouting(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.RoutingRecord{}).
		Where("document_id = ? AND is_current = ?", documentID, true).
		Update("is_current", false).Error
}

func (r *repository) InsertRouting(ctx context.Context, record *models.RoutingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) UpdateHolderStatus(ctx context.Context, documentID, holder uuid.UUID, status enums.DocumentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", documentID).
		Updates(map[string]any{
			"current_holder": holder,
			"status":         status,
		}).Error
}

func (r *repository) RoutingByDocument(ctx context.Context, documentID uuid.UUID) ([]models.RoutingRecord, error) {
	var records []models.RoutingRecord
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("routed_at DESC").
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) MarkArchived(ctx context.Context, documentID uuid.UUID, archivedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", documentID).
		Updates(map[string]any{
			"is_archived": true,
			"status":      enums.DocumentStatusArchived,
			"archived_at": archivedAt,
		}).Error
}

func (r *repository) InsertArchiveRecord(ctx context.Context, record *models.ArchiveRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindArchiveRecord(ctx context.Context, documentID uuid.UUID) (*models.ArchiveRecord, error) {
	var record models.ArchiveRecord
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteCascade removes the document and every dependent row. The schema
// carries ON DELETE CASCADE as a backstop; children are deleted explicitly so
// the ordering is deterministic and the same on every backend.
func (r *repository) DeleteCascade(ctx context.Context, documentID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("document_id = ?", documentID).Delete(&models.RoutingRecord{}).Error; err != nil {
		return err
	}
	if err := db.Where("document_id = ?", documentID).Delete(&models.HistoryEntry{}).Error; err != nil {
		return err
	}
	if err := db.Where("document_id = ?", documentID).Delete(&models.ArchiveRecord{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", documentID).Delete(&models.Document{}).Error
}

func (r *repository) List(ctx context.Context, filter listFilter) ([]models.Document, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("is_archived = ?", filter.archived)

	if filter.visibleTo != nil {
		q = q.Where("uploaded_by = ? OR current_holder = ?", *filter.visibleTo, *filter.visibleTo)
	}
	if filter.status != nil {
		q = q.Where("status = ?", *filter.status)
	}
	if filter.priority != nil {
		q = q.Where("priority = ?", *filter.priority)
	}
	if filter.docType != "" {
		q = q.Where("type = ?", filter.docType)
	}
	if filter.search != "" {
		pattern := "%" + filter.search + "%"
		q = q.Where("title LIKE ? OR number LIKE ?", pattern, pattern)
	}
	if filter.cursor != nil {
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			filter.cursor.CreatedAt, filter.cursor.CreatedAt, filter.cursor.ID,
		)
	}

	var docs []models.Document
	if err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(filter.limit).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repository) CountByStatus(ctx context.Context, visibleTo *uuid.UUID) (map[enums.DocumentStatus]int64, error) {
	type row struct {
		Status enums.DocumentStatus
		Count  int64
	}

	q := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Select("status, COUNT(*) AS count").
		Group("status")
	if visibleTo != nil {
		q = q.Where("uploaded_by = ? OR current_holder = ?", *visibleTo, *visibleTo)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[enums.DocumentStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

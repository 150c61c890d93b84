package documents

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/docroute/docroute-backend/internal/history"
	"github.com/docroute/docroute-backend/internal/users"
	"github.com/docroute/docroute-backend/pkg/auth"
	dbpkg "github.com/docroute/docroute-backend/pkg/db"
	"github.com/docroute/docroute-backend/pkg/db/models"
	"github.com/docroute/docroute-backend/pkg/enums"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/logger"
	"github.com/docroute/docroute-backend/pkg/metrics"
	"github.com/docroute/docroute-backend/pkg/outbox"
	"github.com/docroute/docroute-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	numberInsertAttempts = 3

	defaultArchiveReason = "Archived by user"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type historyRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input history.RecordEntryInput) (*models.HistoryEntry, error)
}

type userDirectory interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type blobStore interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	ObjectExists(ctx context.Context, bucket, object string) (bool, error)
}

// Service is the document lifecycle engine. Every mutation runs inside one
// transaction together with its routing, audit, and outbox writes.
type Service interface {
	PresignUpload(ctx context.Context, actor auth.Principal, input PresignInput) (*PresignOutput, error)
	Create(ctx context.Context, actor auth.Principal, input CreateInput) (*models.Document, error)
	Route(ctx context.Context, actor auth.Principal, input RouteInput) (*models.RoutingRecord, error)
	Archive(ctx context.Context, actor auth.Principal, input ArchiveInput) (*models.ArchiveRecord, error)
	Delete(ctx context.Context, actor auth.Principal, input DeleteInput) (*DeleteResult, error)
	Edit(ctx context.Context, actor auth.Principal, input EditInput) (*models.Document, error)

	List(ctx context.Context, actor auth.Principal, params ListParams) (*ListResult, error)
	ListArchived(ctx context.Context, actor auth.Principal, params ListParams) (*ListResult, error)
	Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Detail, error)
	RoutingTimeline(ctx context.Context, actor auth.Principal, id uuid.UUID) ([]TimelineStep, error)
	StatusCounts(ctx context.Context, actor auth.Principal) (map[enums.DocumentStatus]int64, error)
	FileURL(ctx context.Context, actor auth.Principal, id uuid.UUID) (*FileURLOutput, error)
}

// Deps carries the collaborators the lifecycle engine needs.
type Deps struct {
	Repo    Repository
	Users   userDirectory
	History historyRecorder
	Tx      txRunner
	Outbox  outboxPublisher
	Blob    blobStore
	Metrics *metrics.LifecycleMetrics
	Logger  *logger.Logger

	Bucket            string
	UploadTTL         time.Duration
	DownloadTTL       time.Duration
	MaxUploadBytes    int64
	AllowedExtensions []string
}

type service struct {
	repo    Repository
	users   userDirectory
	history historyRecorder
	tx      txRunner
	outbox  outboxPublisher
	blob    blobStore
	metrics *metrics.LifecycleMetrics
	logg    *logger.Logger

	bucket         string
	uploadTTL      time.Duration
	downloadTTL    time.Duration
	maxUploadBytes int64
	allowedExts    map[string]struct{}
}

// NewService wires the lifecycle engine with the provided dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("documents repository required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if deps.History == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Blob == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if deps.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	if deps.UploadTTL <= 0 || deps.DownloadTTL <= 0 {
		return nil, fmt.Errorf("signed url ttls must be positive")
	}
	if deps.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}

	allowed := make(map[string]struct{}, len(deps.AllowedExtensions))
	for _, ext := range deps.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("at least one allowed extension required")
	}

	return &service{
		repo:           deps.Repo,
		users:          deps.Users,
		history:        deps.History,
		tx:             deps.Tx,
		outbox:         deps.Outbox,
		blob:           deps.Blob,
		metrics:        deps.Metrics,
		logg:           deps.Logger,
		bucket:         deps.Bucket,
		uploadTTL:      deps.UploadTTL,
		downloadTTL:    deps.DownloadTTL,
		maxUploadBytes: deps.MaxUploadBytes,
		allowedExts:    allowed,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

// PresignOutput contains the upload target returned to the client. FileRef is
// echoed back on the subsequent create call.
type PresignOutput struct {
	FileRef      string    `json:"file_ref"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreateInput captures the metadata recorded when a document enters the ledger.
type CreateInput struct {
	Title       string
	Description *string
	Type        string
	Priority    enums.DocumentPriority
	FileRef     string
	FileSize    int64
	IPAddress   *string
}

// RouteInput moves custody of a document to another holder.
type RouteInput struct {
	DocumentID uuid.UUID
	ToUser     uuid.UUID
	Action     enums.RoutingAction
	Remarks    *string
	IPAddress  *string
}

// ArchiveInput captures the terminal archive transition.
type ArchiveInput struct {
	DocumentID uuid.UUID
	Reason     string
	IPAddress  *string
}

// DeleteInput identifies the document to hard-delete.
type DeleteInput struct {
	DocumentID uuid.UUID
	IPAddress  *string
}

// DeleteResult reports the outcome of a hard delete. The database rows are
// always gone when this is returned; BlobDeleted reports the best-effort
// removal of the backing file.
type DeleteResult struct {
	DocumentID  uuid.UUID `json:"document_id"`
	BlobDeleted bool      `json:"blob_deleted"`
	BlobError   string    `json:"blob_error,omitempty"`
}

// EditInput updates document metadata. Nil fields are left untouched.
type EditInput struct {
	DocumentID  uuid.UUID
	Title       *string
	Description *string
	Type        *string
	Priority    *enums.DocumentPriority
	IPAddress   *string
}

func (s *service) PresignUpload(ctx context.Context, actor auth.Principal, input PresignInput) (*PresignOutput, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_type is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxUploadBytes))
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if _, ok := s.allowedExts[ext]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file extension %q not allowed", ext))
	}

	fileRef := buildFileRef(uuid.New(), fileName)

	signedURL, err := s.blob.SignedURL(s.bucket, fileRef, contentType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sign upload url")
	}

	return &PresignOutput{
		FileRef:      fileRef,
		SignedPUTURL: signedURL,
		ContentType:  contentType,
		ExpiresAt:    time.Now().Add(s.uploadTTL),
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Principal, input CreateInput) (*models.Document, error) {
	var err error
	defer s.observe("create", time.Now(), &err)

	if actor.UserID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		err = pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		return nil, err
	}
	if strings.TrimSpace(input.Type) == "" {
		err = pkgerrors.New(pkgerrors.CodeValidation, "type is required")
		return nil, err
	}
	if strings.TrimSpace(input.FileRef) == "" {
		err = pkgerrors.New(pkgerrors.CodeValidation, "file_ref is required")
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.DocumentPriorityMedium
	}
	if !priority.IsValid() {
		err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", priority))
		return nil, err
	}

	fileRef := strings.TrimSpace(input.FileRef)
	exists, existsErr := s.blob.ObjectExists(ctx, s.bucket, fileRef)
	if existsErr != nil {
		err = pkgerrors.Wrap(pkgerrors.CodeStorage, existsErr, "verify uploaded object")
		return nil, err
	}
	if !exists {
		err = pkgerrors.New(pkgerrors.CodeValidation, "file_ref does not reference an uploaded object")
		return nil, err
	}

	var doc *models.Document
	// The tracking number suffix is random; on the rare collision the whole
	// transaction is retried with a fresh number.
	for attempt := 0; attempt < numberInsertAttempts; attempt++ {
		number, numErr := GenerateNumber(time.Now())
		if numErr != nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, numErr, "generate document number")
			return nil, err
		}

		candidate := &models.Document{
			ID:            uuid.New(),
			Number:        number,
			Title:         strings.TrimSpace(input.Title),
			Description:   input.Description,
			Type:          strings.TrimSpace(input.Type),
			Priority:      priority,
			Status:        enums.DocumentStatusPending,
			UploadedBy:    actor.UserID,
			CurrentHolder: actor.UserID,
			FileRef:       fileRef,
			FileSize:      input.FileSize,
		}

		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if createErr := repo.Create(ctx, candidate); createErr != nil {
				return createErr
			}
			if _, histErr := s.history.Record(ctx, tx, history.RecordEntryInput{
				DocumentID: candidate.ID,
				Actor:      actor.UserID,
				Action:     history.ActionUploaded,
				IPAddress:  input.IPAddress,
			}); histErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeTransaction, histErr, "record audit entry")
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDocumentUploaded,
				AggregateType: enums.AggregateDocument,
				AggregateID:   candidate.ID,
				Version:       1,
				Actor:         buildActor(actor),
				Data: payloads.DocumentUploadedEvent{
					DocumentID: candidate.ID,
					Number:     candidate.Number,
					Title:      candidate.Title,
					Type:       candidate.Type,
					Priority:   candidate.Priority,
					UploadedBy: candidate.UploadedBy,
				},
			})
		})
		if txErr == nil {
			doc = candidate
			break
		}
		if dbpkg.IsUniqueViolation(txErr, "ux_documents_number") {
			continue
		}
		err = wrapTxErr(txErr, "create document")
		return nil, err
	}
	if doc == nil {
		err = pkgerrors.New(pkgerrors.CodeTransaction, "could not allocate a unique document number")
		return nil, err
	}

	s.logCtx(ctx, doc.ID, "document created")
	return doc, nil
}

func (s *service) Route(ctx context.Context, actor auth.Principal, input RouteInput) (*models.RoutingRecord, error) {
	var err error
	defer s.observe("route", time.Now(), &err)

	if actor.UserID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		return nil, err
	}
	if input.DocumentID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
		return nil, err
	}
	if input.ToUser == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeValidation, "target user is required")
		return nil, err
	}
	if strings.TrimSpace(input.Action.String()) == "" {
		err = pkgerrors.New(pkgerrors.CodeValidation, "action is required")
		return nil, err
	}

	var record *models.RoutingRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		doc, findErr := repo.FindForUpdate(ctx, input.DocumentID)
		if findErr != nil {
			return notFoundOrDependency(findErr, "load document")
		}
		if doc.IsArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "archived documents cannot be routed")
		}

		target, userErr := s.users.FindActiveByID(ctx, input.ToUser)
		if userErr != nil {
			if userErr == users.ErrNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "target user not found or inactive")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, userErr, "load target user")
		}

		if clearErr := repo.ClearCurrentRouting(ctx, doc.ID); clearErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, clearErr, "clear current routing")
		}

		fromUser := doc.CurrentHolder
		record = &models.RoutingRecord{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			FromUser:   fromUser,
			ToUser:     input.ToUser,
			Action:     input.Action,
			Remarks:    input.Remarks,
			IsCurrent:  true,
		}
		if insErr := repo.InsertRouting(ctx, record); insErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, insErr, "insert routing record")
		}

		status := enums.DocumentStatusInProgress
		if input.Action.IsTerminal() {
			status = enums.DocumentStatusCompleted
		}
		if updErr := repo.UpdateHolderStatus(ctx, doc.ID, input.ToUser, status); updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "update document holder")
		}

		names, nameErr := s.users.NamesByIDs(ctx, []uuid.UUID{fromUser, input.ToUser})
		if nameErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, nameErr, "resolve user names")
		}
		details := routeDetails(names[fromUser], target.FullName, input.Remarks)
		if _, histErr := s.history.Record(ctx, tx, history.RecordEntryInput{
			DocumentID: doc.ID,
			Actor:      actor.UserID,
			Action:     history.ActionRouted,
			Details:    &details,
			IPAddress:  input.IPAddress,
		}); histErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransaction, histErr, "record audit entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDocumentRouted,
			AggregateType: enums.AggregateDocument,
			AggregateID:   doc.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.DocumentRoutedEvent{
				DocumentID: doc.ID,
				Number:     doc.Number,
				FromUser:   fromUser,
				ToUser:     input.ToUser,
				Action:     input.Action,
				Status:     status,
				Remarks:    derefOrEmpty(input.Remarks),
				RoutedAt:   time.Now(),
			},
		})
	})
	if err != nil {
		err = wrapTxErr(err, "route document")
		return nil, err
	}

	s.logCtx(ctx, input.DocumentID, "document routed")
	return record, nil
}

func (s *service) Archive(ctx context.Context, actor auth.Principal, input ArchiveInput) (*models.ArchiveRecord, error) {
	var err error
	defer s.observe("archive", time.Now(), &err)

	if actor.UserID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		return nil, err
	}
	if input.DocumentID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultArchiveReason
	}

	var record *models.ArchiveRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		doc, findErr := repo.FindForUpdate(ctx, input.DocumentID)
		if findErr != nil {
			return notFoundOrDependency(findErr, "load document")
		}
		if doc.IsArchived {
			return pkgerrors.New(pkgerrors.CodeAlreadyArchived, "document is already archived")
		}

		archivedAt := time.Now()
		if markErr := repo.MarkArchived(ctx, doc.ID, archivedAt); markErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "mark document archived")
		}

		record = &models.ArchiveRecord{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			ArchivedBy: actor.UserID,
			Reason:     reason,
			ArchivedAt: archivedAt,
		}
		if insErr := repo.InsertArchiveRecord(ctx, record); insErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, insErr, "insert archive record")
		}

		details := fmt.Sprintf("Archived: %s", record.Reason)
		if _, histErr := s.history.Record(ctx, tx, history.RecordEntryInput{
			DocumentID: doc.ID,
			Actor:      actor.UserID,
			Action:     history.ActionArchived,
			Details:    &details,
			IPAddress:  input.IPAddress,
		}); histErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransaction, histErr, "record audit entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDocumentArchived,
			AggregateType: enums.AggregateDocument,
			AggregateID:   doc.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.DocumentArchivedEvent{
				DocumentID: doc.ID,
				Number:     doc.Number,
				ArchivedBy: actor.UserID,
				Reason:     record.Reason,
				ArchivedAt: archivedAt,
			},
		})
	})
	if err != nil {
		err = wrapTxErr(err, "archive document")
		return nil, err
	}

	s.logCtx(ctx, input.DocumentID, "document archived")
	return record, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Principal, input DeleteInput) (*DeleteResult, error) {
	var err error
	defer s.observe("delete", time.Now(), &err)

	if actor.UserID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		return nil, err
	}
	if input.DocumentID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
		return nil, err
	}

	var fileRef string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		doc, findErr := repo.FindForUpdate(ctx, input.DocumentID)
		if findErr != nil {
			return notFoundOrDependency(findErr, "load document")
		}
		// Ownership, not role: even admins cannot delete another user's upload.
		if doc.UploadedBy != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the uploader may delete this document")
		}
		fileRef = doc.FileRef

		if emitErr := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDocumentDeleted,
			AggregateType: enums.AggregateDocument,
			AggregateID:   doc.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.DocumentDeletedEvent{
				DocumentID: doc.ID,
				Number:     doc.Number,
				DeletedBy:  actor.UserID,
				FileRef:    doc.FileRef,
			},
		}); emitErr != nil {
			return emitErr
		}

		// History rows go down with the document; the outbox row above is the
		// surviving trace of the delete.
		if delErr := repo.DeleteCascade(ctx, doc.ID); delErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransaction, delErr, "delete document rows")
		}
		return nil
	})
	if err != nil {
		err = wrapTxErr(err, "delete document")
		return nil, err
	}

	result := &DeleteResult{DocumentID: input.DocumentID, BlobDeleted: true}
	if blobErr := s.blob.DeleteObject(ctx, s.bucket, fileRef); blobErr != nil {
		result.BlobDeleted = false
		result.BlobError = blobErr.Error()
		if s.logg != nil {
			warnCtx := s.logg.WithFields(ctx, map[string]any{
				"document_id": input.DocumentID.String(),
				"file_ref":    fileRef,
			})
			s.logg.Warn(warnCtx, "blob delete failed after document delete")
		}
	}

	s.logCtx(ctx, input.DocumentID, "document deleted")
	return result, nil
}

func (s *service) Edit(ctx context.Context, actor auth.Principal, input EditInput) (*models.Document, error) {
	var err error
	defer s.observe("edit", time.Now(), &err)

	if actor.UserID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		return nil, err
	}
	if input.DocumentID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			err = pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
			return nil, err
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Type != nil {
		docType := strings.TrimSpace(*input.Type)
		if docType == "" {
			err = pkgerrors.New(pkgerrors.CodeValidation, "type cannot be empty")
			return nil, err
		}
		updates["type"] = docType
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", *input.Priority))
			return nil, err
		}
		updates["priority"] = *input.Priority
	}
	if len(updates) == 0 {
		err = pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
		return nil, err
	}

	var doc *models.Document
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, findErr := repo.FindForUpdate(ctx, input.DocumentID)
		if findErr != nil {
			return notFoundOrDependency(findErr, "load document")
		}
		if current.IsArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "archived documents cannot be edited")
		}
		if current.UploadedBy != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the uploader may edit this document")
		}

		if updErr := repo.UpdateMeta(ctx, current.ID, updates); updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "update document metadata")
		}

		if _, histErr := s.history.Record(ctx, tx, history.RecordEntryInput{
			DocumentID: current.ID,
			Actor:      actor.UserID,
			Action:     history.ActionUpdated,
			IPAddress:  input.IPAddress,
		}); histErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransaction, histErr, "record audit entry")
		}

		reloaded, reloadErr := repo.FindByID(ctx, current.ID)
		if reloadErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, reloadErr, "reload document")
		}
		doc = reloaded
		return nil
	})
	if err != nil {
		err = wrapTxErr(err, "edit document")
		return nil, err
	}

	s.logCtx(ctx, input.DocumentID, "document updated")
	return doc, nil
}

func buildActor(actor auth.Principal) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}

func routeDetails(fromName, toName string, remarks *string) string {
	if fromName == "" {
		fromName = "unknown"
	}
	remarkText := "none"
	if remarks != nil && strings.TrimSpace(*remarks) != "" {
		remarkText = strings.TrimSpace(*remarks)
	}
	return fmt.Sprintf("Document routed from %s to %s. Remarks: %s", fromName, toName, remarkText)
}

func notFoundOrDependency(err error, msg string) error {
	if err == ErrNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

// wrapTxErr keeps coded errors as-is and labels everything else as a failed
// ledger transaction.
func wrapTxErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if coded := pkgerrors.As(err); coded != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, msg)
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (s *service) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil && *err != nil {
		code := pkgerrors.CodeInternal
		if coded := pkgerrors.As(*err); coded != nil {
			code = coded.Code()
		}
		s.metrics.IncFailure(operation, string(code))
		return
	}
	s.metrics.IncSuccess(operation)
}

func (s *service) logCtx(ctx context.Context, documentID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithDocumentID(ctx, documentID.String()), msg)
}

func buildFileRef(id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("documents/%s/%s", id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}

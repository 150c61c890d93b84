package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docroute/docroute-backend/internal/history"
	"github.com/docroute/docroute-backend/internal/users"
	"github.com/docroute/docroute-backend/pkg/auth"
	"github.com/docroute/docroute-backend/pkg/db/models"
	"github.com/docroute/docroute-backend/pkg/enums"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/outbox"
	"github.com/docroute/docroute-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepo struct {
	doc            *models.Document
	findErr        error
	created        *models.Document
	createErr      error
	clearedCurrent []uuid.UUID
	inserted       []*models.RoutingRecord
	holderUpdates  []holderUpdate
	metaUpdates    map[string]any
	archivedAt     *time.Time
	archiveRecord  *models.ArchiveRecord
	deleted        []uuid.UUID
	listRows       []models.Document
	listFilter     *listFilter
	routing        []models.RoutingRecord
	counts         map[enums.DocumentStatus]int64
}

type holderUpdate struct {
	documentID uuid.UUID
	holder     uuid.UUID
	status     enums.DocumentStatus
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, doc *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = doc
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return f.find(id)
}

func (f *fakeRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return f.find(id)
}

func (f *fakeRepo) find(id uuid.UUID) (*models.Document, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.doc == nil || f.doc.ID != id {
		return nil, ErrNotFound
	}
	copied := *f.doc
	return &copied, nil
}

func (f *fakeRepo) UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.metaUpdates = updates
	return nil
}

func (f *fakeRepo) CurrentRouting(ctx context.Context, documentID uuid.UUID) (*models.RoutingRecord, error) {
	for i := range f.routing {
		if f.routing[i].DocumentID == documentID && f.routing[i].IsCurrent {
			return &f.routing[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ClearCurrentRouting(ctx context.Context, documentID uuid.UUID) error {
	f.clearedCurrent = append(f.clearedCurrent, documentID)
	return nil
}

func (f *fakeRepo) InsertRouting(ctx context.Context, record *models.RoutingRecord) error {
	f.inserted = append(f.inserted, record)
	return nil
}

func (f *fakeRepo) UpdateHolderStatus(ctx context.Context, documentID, holder uuid.UUID, status enums.DocumentStatus) error {
	f.holderUpdates = append(f.holderUpdates, holderUpdate{documentID, holder, status})
	return nil
}

func (f *fakeRepo) RoutingByDocument(ctx context.Context, documentID uuid.UUID) ([]models.RoutingRecord, error) {
	return f.routing, nil
}

func (f *fakeRepo) MarkArchived(ctx context.Context, documentID uuid.UUID, archivedAt time.Time) error {
	f.archivedAt = &archivedAt
	return nil
}

func (f *fakeRepo) InsertArchiveRecord(ctx context.Context, record *models.ArchiveRecord) error {
	f.archiveRecord = record
	return nil
}

func (f *fakeRepo) FindArchiveRecord(ctx context.Context, documentID uuid.UUID) (*models.ArchiveRecord, error) {
	return f.archiveRecord, nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, documentID uuid.UUID) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, filter listFilter) ([]models.Document, error) {
	f.listFilter = &filter
	return f.listRows, nil
}

func (f *fakeRepo) CountByStatus(ctx context.Context, visibleTo *uuid.UUID) (map[enums.DocumentStatus]int64, error) {
	return f.counts, nil
}

type stubTxRunner struct {
	err error
}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeHistory struct {
	entries []history.RecordEntryInput
	err     error
}

func (f *fakeHistory) Record(ctx context.Context, tx *gorm.DB, input history.RecordEntryInput) (*models.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.entries = append(f.entries, input)
	return &models.HistoryEntry{DocumentID: input.DocumentID, Action: input.Action}, nil
}

type fakeUsers struct {
	byID map[uuid.UUID]*models.User
}

func (f *fakeUsers) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.byID[id]; ok && user.IsActive {
		return user, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := map[uuid.UUID]string{}
	for _, id := range ids {
		if user, ok := f.byID[id]; ok {
			names[id] = user.FullName
		}
	}
	return names, nil
}

type fakeBlob struct {
	signedURL string
	signErr   error
	deleted   []string
	deleteErr error
	missing   bool
	existsErr error
}

func (f *fakeBlob) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return f.signedURL, nil
}

func (f *fakeBlob) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return f.signedURL, nil
}

func (f *fakeBlob) DeleteObject(ctx context.Context, bucket, object string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, object)
	return nil
}

func (f *fakeBlob) ObjectExists(ctx context.Context, bucket, object string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return !f.missing, nil
}

type fixture struct {
	repo    *fakeRepo
	outbox  *fakeOutbox
	history *fakeHistory
	users   *fakeUsers
	blob    *fakeBlob
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:    &fakeRepo{},
		outbox:  &fakeOutbox{},
		history: &fakeHistory{},
		users:   &fakeUsers{byID: map[uuid.UUID]*models.User{}},
		blob:    &fakeBlob{signedURL: "https://storage.googleapis.com/bucket/signed"},
	}

	svc, err := NewService(Deps{
		Repo:              f.repo,
		Users:             f.users,
		History:           f.history,
		Tx:                stubTxRunner{},
		Outbox:            f.outbox,
		Blob:              f.blob,
		Bucket:            "bucket",
		UploadTTL:         15 * time.Minute,
		DownloadTTL:       10 * time.Minute,
		MaxUploadBytes:    10 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "docx", "png"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addUser(name string, active bool) uuid.UUID {
	id := uuid.New()
	f.users.byID[id] = &models.User{ID: id, FullName: name, IsActive: active, Role: enums.UserRoleStaff}
	return id
}

func (f *fixture) seedDocument(uploader, holder uuid.UUID) *models.Document {
	doc := &models.Document{
		ID:            uuid.New(),
		Number:        "DOC-20260115-AB12CD",
		Title:         "Q1 budget",
		Type:          "memo",
		Priority:      enums.DocumentPriorityMedium,
		Status:        enums.DocumentStatusPending,
		UploadedBy:    uploader,
		CurrentHolder: holder,
		FileRef:       "documents/abc/q1-budget.pdf",
	}
	f.repo.doc = doc
	return doc
}

func staffActor(id uuid.UUID) auth.Principal {
	return auth.Principal{UserID: id, Role: enums.UserRoleStaff}
}

func adminActor(id uuid.UUID) auth.Principal {
	return auth.Principal{UserID: id, Role: enums.UserRoleAdmin}
}

func TestCreateRecordsDocumentAuditAndEvent(t *testing.T) {
	f := newFixture(t)
	actor := staffActor(f.addUser("Alice", true))

	doc, err := f.svc.Create(context.Background(), actor, CreateInput{
		Title:    "Q1 budget",
		Type:     "memo",
		FileRef:  "documents/abc/q1-budget.pdf",
		FileSize: 1024,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.HasPrefix(doc.Number, "DOC-") {
		t.Fatalf("unexpected number %q", doc.Number)
	}
	if doc.Status != enums.DocumentStatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}
	if doc.CurrentHolder != actor.UserID || doc.UploadedBy != actor.UserID {
		t.Fatalf("uploader should hold the new document: %+v", doc)
	}
	if f.repo.created == nil {
		t.Fatal("expected document row to be created")
	}
	if len(f.history.entries) != 1 || f.history.entries[0].Action != history.ActionUploaded {
		t.Fatalf("expected upload audit entry, got %+v", f.history.entries)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventDocumentUploaded {
		t.Fatalf("expected uploaded event, got %+v", f.outbox.events)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	actor := staffActor(uuid.New())

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing title", CreateInput{Type: "memo", FileRef: "documents/x.pdf"}},
		{"missing type", CreateInput{Title: "t", FileRef: "documents/x.pdf"}},
		{"missing file ref", CreateInput{Title: "t", Type: "memo"}},
		{"bad priority", CreateInput{Title: "t", Type: "memo", FileRef: "documents/x.pdf", Priority: "extreme"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), actor, tc.input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateRejectsMissingBlobObject(t *testing.T) {
	f := newFixture(t)
	f.blob.missing = true
	actor := staffActor(uuid.New())

	_, err := f.svc.Create(context.Background(), actor, CreateInput{
		Title:   "t",
		Type:    "memo",
		FileRef: "documents/x.pdf",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.repo.created != nil {
		t.Fatal("no row should be written for a missing object")
	}
}

func TestCreateSurfacesBlobLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.blob.existsErr = errors.New("gcs unavailable")
	actor := staffActor(uuid.New())

	_, err := f.svc.Create(context.Background(), actor, CreateInput{
		Title:   "t",
		Type:    "memo",
		FileRef: "documents/x.pdf",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestCreateAuditFailureAbortsTransaction(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("history insert failed")
	actor := staffActor(uuid.New())

	_, err := f.svc.Create(context.Background(), actor, CreateInput{
		Title:   "t",
		Type:    "memo",
		FileRef: "documents/x.pdf",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeTransaction) {
		t.Fatalf("expected transaction error, got %v", err)
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("no event should be emitted when the audit write fails")
	}
}

func TestRouteMovesCustody(t *testing.T) {
	f := newFixture(t)
	holder := f.addUser("Alice", true)
	target := f.addUser("Bob", true)
	doc := f.seedDocument(holder, holder)

	remarks := "please review"
	record, err := f.svc.Route(context.Background(), staffActor(holder), RouteInput{
		DocumentID: doc.ID,
		ToUser:     target,
		Action:     enums.ActionForwarded,
		Remarks:    &remarks,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if len(f.repo.clearedCurrent) != 1 || f.repo.clearedCurrent[0] != doc.ID {
		t.Fatal("expected previous current routing to be cleared")
	}
	if !record.IsCurrent || record.FromUser != holder || record.ToUser != target {
		t.Fatalf("unexpected routing record: %+v", record)
	}
	if len(f.repo.holderUpdates) != 1 {
		t.Fatal("expected holder update")
	}
	upd := f.repo.holderUpdates[0]
	if upd.holder != target || upd.status != enums.DocumentStatusInProgress {
		t.Fatalf("unexpected holder update: %+v", upd)
	}
	if len(f.history.entries) != 1 {
		t.Fatal("expected audit entry")
	}
	details := f.history.entries[0].Details
	if details == nil || *details != "Document routed from Alice to Bob. Remarks: please review" {
		t.Fatalf("unexpected audit details: %v", details)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventDocumentRouted {
		t.Fatalf("expected routed event, got %+v", f.outbox.events)
	}
}

func TestRouteCompletedActionCompletesDocument(t *testing.T) {
	f := newFixture(t)
	holder := f.addUser("Alice", true)
	target := f.addUser("Bob", true)
	doc := f.seedDocument(holder, holder)

	_, err := f.svc.Route(context.Background(), staffActor(holder), RouteInput{
		DocumentID: doc.ID,
		ToUser:     target,
		Action:     enums.ActionCompleted,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if f.repo.holderUpdates[0].status != enums.DocumentStatusCompleted {
		t.Fatalf("expected completed status, got %s", f.repo.holderUpdates[0].status)
	}
}

// Any authenticated user may route; custody transfers from the current holder
// regardless of who submits the handoff.
func TestRouteByNonHolder(t *testing.T) {
	f := newFixture(t)
	holder := f.addUser("Alice", true)
	target := f.addUser("Bob", true)
	clerk := f.addUser("Dave", true)
	doc := f.seedDocument(holder, holder)

	record, err := f.svc.Route(context.Background(), staffActor(clerk), RouteInput{
		DocumentID: doc.ID, ToUser: target, Action: enums.ActionForwarded,
	})
	if err != nil {
		t.Fatalf("Route by non-holder should succeed: %v", err)
	}
	if record.FromUser != holder {
		t.Fatalf("custody should transfer from the holder, got from=%s", record.FromUser)
	}
	if len(f.history.entries) != 1 || f.history.entries[0].Actor != clerk {
		t.Fatalf("audit entry should name the submitting actor, got %+v", f.history.entries)
	}
}

func TestRouteToCurrentHolder(t *testing.T) {
	f := newFixture(t)
	holder := f.addUser("Alice", true)
	doc := f.seedDocument(holder, holder)

	record, err := f.svc.Route(context.Background(), staffActor(holder), RouteInput{
		DocumentID: doc.ID, ToUser: holder, Action: enums.ActionReturned,
	})
	if err != nil {
		t.Fatalf("Route back to the holder should succeed: %v", err)
	}
	if record.FromUser != holder || record.ToUser != holder || !record.IsCurrent {
		t.Fatalf("unexpected routing record: %+v", record)
	}
}

func TestRouteRejections(t *testing.T) {
	f := newFixture(t)
	holder := f.addUser("Alice", true)
	target := f.addUser("Bob", true)
	inactive := f.addUser("Carol", false)
	doc := f.seedDocument(holder, holder)

	t.Run("inactive target", func(t *testing.T) {
		_, err := f.svc.Route(context.Background(), staffActor(holder), RouteInput{
			DocumentID: doc.ID, ToUser: inactive, Action: enums.ActionForwarded,
		})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := f.svc.Route(context.Background(), staffActor(holder), RouteInput{
			DocumentID: uuid.New(), ToUser: target, Action: enums.ActionForwarded,
		})
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("archived document", func(t *testing.T) {
		f.repo.doc.IsArchived = true
		defer func() { f.repo.doc.IsArchived = false }()
		_, err := f.svc.Route(context.Background(), staffActor(holder), RouteInput{
			DocumentID: doc.ID, ToUser: target, Action: enums.ActionForwarded,
		})
		if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
}

func TestArchive(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)

	record, err := f.svc.Archive(context.Background(), staffActor(uploader), ArchiveInput{
		DocumentID: doc.ID,
		Reason:     "fiscal year closed",
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if record.Reason != "fiscal year closed" || record.ArchivedBy != uploader {
		t.Fatalf("unexpected archive record: %+v", record)
	}
	if f.repo.archivedAt == nil {
		t.Fatal("expected document to be marked archived")
	}
	if len(f.history.entries) != 1 || f.history.entries[0].Action != history.ActionArchived {
		t.Fatalf("expected archive audit entry, got %+v", f.history.entries)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventDocumentArchived {
		t.Fatalf("expected archived event, got %+v", f.outbox.events)
	}
}

func TestArchiveAlreadyArchived(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)
	f.repo.doc.IsArchived = true

	_, err := f.svc.Archive(context.Background(), staffActor(uploader), ArchiveInput{
		DocumentID: doc.ID,
		Reason:     "again",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyArchived) {
		t.Fatalf("expected already archived error, got %v", err)
	}
}

// Archive is open to any authenticated user, matching route semantics.
func TestArchiveByNonUploader(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	clerk := f.addUser("Dave", true)
	doc := f.seedDocument(uploader, uploader)

	record, err := f.svc.Archive(context.Background(), staffActor(clerk), ArchiveInput{
		DocumentID: doc.ID,
		Reason:     "retention window closed",
	})
	if err != nil {
		t.Fatalf("Archive by non-uploader should succeed: %v", err)
	}
	if record.ArchivedBy != clerk {
		t.Fatalf("archive record should name the actor, got %+v", record)
	}
}

func TestArchiveDefaultsReason(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)

	record, err := f.svc.Archive(context.Background(), staffActor(uploader), ArchiveInput{
		DocumentID: doc.ID,
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if record.Reason != "Archived by user" {
		t.Fatalf("expected default reason, got %q", record.Reason)
	}
}

func TestDeleteRemovesRowsThenBlob(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)

	result, err := f.svc.Delete(context.Background(), staffActor(uploader), DeleteInput{DocumentID: doc.ID})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !result.BlobDeleted {
		t.Fatalf("expected blob deleted, got %+v", result)
	}
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != doc.ID {
		t.Fatal("expected cascade delete of document rows")
	}
	if len(f.blob.deleted) != 1 || f.blob.deleted[0] != doc.FileRef {
		t.Fatalf("expected blob delete of %s, got %v", doc.FileRef, f.blob.deleted)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventDocumentDeleted {
		t.Fatalf("expected deleted event, got %+v", f.outbox.events)
	}
}

func TestDeleteSurfacesBlobFailure(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)
	f.blob.deleteErr = errors.New("gcs unavailable")

	result, err := f.svc.Delete(context.Background(), staffActor(uploader), DeleteInput{DocumentID: doc.ID})
	if err != nil {
		t.Fatalf("Delete should still succeed: %v", err)
	}
	if result.BlobDeleted {
		t.Fatal("expected blob delete failure to be surfaced")
	}
	if result.BlobError == "" {
		t.Fatal("expected blob error message")
	}
	if len(f.repo.deleted) != 1 {
		t.Fatal("database rows should still be deleted")
	}
}

func TestDeleteForbiddenForNonOwner(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	holder := f.addUser("Bob", true)
	doc := f.seedDocument(uploader, holder)

	_, err := f.svc.Delete(context.Background(), staffActor(holder), DeleteInput{DocumentID: doc.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.blob.deleted) != 0 {
		t.Fatal("blob must not be touched on a rejected delete")
	}
}

// Delete is ownership-gated, not role-gated: an admin who did not upload the
// document is rejected like anyone else.
func TestDeleteForbiddenForAdminNonUploader(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	admin := f.addUser("Eve", true)
	doc := f.seedDocument(uploader, uploader)

	_, err := f.svc.Delete(context.Background(), adminActor(admin), DeleteInput{DocumentID: doc.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.repo.deleted) != 0 {
		t.Fatal("ledger rows must be untouched on a rejected delete")
	}
	if len(f.blob.deleted) != 0 {
		t.Fatal("blob must not be touched on a rejected delete")
	}
}

func TestEdit(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)

	title := "Q1 budget (rev 2)"
	priority := enums.DocumentPriorityHigh
	_, err := f.svc.Edit(context.Background(), staffActor(uploader), EditInput{
		DocumentID: doc.ID,
		Title:      &title,
		Priority:   &priority,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if f.repo.metaUpdates["title"] != title {
		t.Fatalf("expected title update, got %+v", f.repo.metaUpdates)
	}
	if f.repo.metaUpdates["priority"] != priority {
		t.Fatalf("expected priority update, got %+v", f.repo.metaUpdates)
	}
	if len(f.history.entries) != 1 || f.history.entries[0].Action != history.ActionUpdated {
		t.Fatalf("expected update audit entry, got %+v", f.history.entries)
	}
}

func TestEditRejections(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)

	t.Run("no fields", func(t *testing.T) {
		_, err := f.svc.Edit(context.Background(), staffActor(uploader), EditInput{DocumentID: doc.ID})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("archived", func(t *testing.T) {
		f.repo.doc.IsArchived = true
		defer func() { f.repo.doc.IsArchived = false }()
		title := "x"
		_, err := f.svc.Edit(context.Background(), staffActor(uploader), EditInput{DocumentID: doc.ID, Title: &title})
		if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("admin non-uploader", func(t *testing.T) {
		admin := f.addUser("Eve", true)
		title := "x"
		_, err := f.svc.Edit(context.Background(), adminActor(admin), EditInput{DocumentID: doc.ID, Title: &title})
		if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
		if f.repo.metaUpdates != nil {
			t.Fatal("metadata must be untouched on a rejected edit")
		}
	})
}

func TestPresignUpload(t *testing.T) {
	f := newFixture(t)
	actor := staffActor(uuid.New())

	out, err := f.svc.PresignUpload(context.Background(), actor, PresignInput{
		FileName:    "contract final.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	if !strings.HasPrefix(out.FileRef, "documents/") {
		t.Fatalf("unexpected file ref %q", out.FileRef)
	}
	if strings.Contains(out.FileRef, " ") {
		t.Fatalf("file ref should be sanitized: %q", out.FileRef)
	}
	if out.SignedPUTURL == "" {
		t.Fatal("expected signed url")
	}
}

func TestPresignUploadValidation(t *testing.T) {
	f := newFixture(t)
	actor := staffActor(uuid.New())

	cases := []struct {
		name  string
		input PresignInput
	}{
		{"missing name", PresignInput{ContentType: "application/pdf", SizeBytes: 1}},
		{"missing content type", PresignInput{FileName: "a.pdf", SizeBytes: 1}},
		{"zero size", PresignInput{FileName: "a.pdf", ContentType: "application/pdf"}},
		{"too large", PresignInput{FileName: "a.pdf", ContentType: "application/pdf", SizeBytes: 11 * 1024 * 1024}},
		{"bad extension", PresignInput{FileName: "a.exe", ContentType: "application/octet-stream", SizeBytes: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.PresignUpload(context.Background(), actor, tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestListScopesStaffToOwnDocuments(t *testing.T) {
	f := newFixture(t)
	staff := f.addUser("Alice", true)

	if _, err := f.svc.List(context.Background(), staffActor(staff), ListParams{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if f.repo.listFilter == nil || f.repo.listFilter.visibleTo == nil {
		t.Fatal("staff listing must be scoped")
	}
	if *f.repo.listFilter.visibleTo != staff {
		t.Fatalf("scoped to wrong user: %s", f.repo.listFilter.visibleTo)
	}

	if _, err := f.svc.List(context.Background(), adminActor(uuid.New()), ListParams{}); err != nil {
		t.Fatalf("List admin: %v", err)
	}
	if f.repo.listFilter.visibleTo != nil {
		t.Fatal("admin listing must be unscoped")
	}
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	admin := adminActor(uuid.New())

	now := time.Now()
	f.repo.listRows = []models.Document{
		{ID: uuid.New(), CreatedAt: now},
		{ID: uuid.New(), CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), CreatedAt: now.Add(-2 * time.Minute)},
	}

	result, err := f.svc.List(context.Background(), admin, ListParams{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected next cursor")
	}

	cursor, err := pagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if cursor.ID != f.repo.listRows[2].ID {
		t.Fatal("cursor should point at the first row of the next page")
	}
}

func TestRoutingTimelineResolvesNames(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("Alice", true)
	bob := f.addUser("Bob", true)
	doc := f.seedDocument(alice, bob)
	f.repo.routing = []models.RoutingRecord{
		{ID: uuid.New(), DocumentID: doc.ID, FromUser: alice, ToUser: bob, Action: enums.ActionForwarded, IsCurrent: true},
	}

	steps, err := f.svc.RoutingTimeline(context.Background(), staffActor(alice), doc.ID)
	if err != nil {
		t.Fatalf("RoutingTimeline: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	if steps[0].FromUserName != "Alice" || steps[0].ToUserName != "Bob" {
		t.Fatalf("names not resolved: %+v", steps[0])
	}
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	holder := f.addUser("Bob", true)
	past := f.addUser("Carol", true)
	stranger := f.addUser("Dave", true)
	doc := f.seedDocument(uploader, holder)
	f.repo.routing = []models.RoutingRecord{
		{ID: uuid.New(), DocumentID: doc.ID, FromUser: uploader, ToUser: past, Action: enums.ActionForwarded},
	}

	for name, actor := range map[string]auth.Principal{
		"uploader":    staffActor(uploader),
		"holder":      staffActor(holder),
		"past holder": staffActor(past),
		"admin":       adminActor(uuid.New()),
	} {
		if _, err := f.svc.Get(context.Background(), actor, doc.ID); err != nil {
			t.Fatalf("%s should see the document: %v", name, err)
		}
	}

	if _, err := f.svc.Get(context.Background(), staffActor(stranger), doc.ID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("stranger should be rejected, got %v", err)
	}
}

func TestFileURL(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser("Alice", true)
	doc := f.seedDocument(uploader, uploader)

	out, err := f.svc.FileURL(context.Background(), staffActor(uploader), doc.ID)
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	if out.URL != f.blob.signedURL {
		t.Fatalf("unexpected url %q", out.URL)
	}
}

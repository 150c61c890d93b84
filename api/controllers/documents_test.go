package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docroute/docroute-backend/api/middleware"
	"github.com/docroute/docroute-backend/internal/documents"
	"github.com/docroute/docroute-backend/internal/history"
	"github.com/docroute/docroute-backend/pkg/auth"
	"github.com/docroute/docroute-backend/pkg/db/models"
	"github.com/docroute/docroute-backend/pkg/enums"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/logger"
)

type testDocumentsService struct {
	presignFn  func(ctx context.Context, actor auth.Principal, input documents.PresignInput) (*documents.PresignOutput, error)
	createFn   func(ctx context.Context, actor auth.Principal, input documents.CreateInput) (*models.Document, error)
	routeFn    func(ctx context.Context, actor auth.Principal, input documents.RouteInput) (*models.RoutingRecord, error)
	archiveFn  func(ctx context.Context, actor auth.Principal, input documents.ArchiveInput) (*models.ArchiveRecord, error)
	deleteFn   func(ctx context.Context, actor auth.Principal, input documents.DeleteInput) (*documents.DeleteResult, error)
	editFn     func(ctx context.Context, actor auth.Principal, input documents.EditInput) (*models.Document, error)
	listFn     func(ctx context.Context, actor auth.Principal, params documents.ListParams) (*documents.ListResult, error)
	getFn      func(ctx context.Context, actor auth.Principal, id uuid.UUID) (*documents.Detail, error)
	timelineFn func(ctx context.Context, actor auth.Principal, id uuid.UUID) ([]documents.TimelineStep, error)
	countsFn   func(ctx context.Context, actor auth.Principal) (map[enums.DocumentStatus]int64, error)
	fileURLFn  func(ctx context.Context, actor auth.Principal, id uuid.UUID) (*documents.FileURLOutput, error)
}

func (s *testDocumentsService) PresignUpload(ctx context.Context, actor auth.Principal, input documents.PresignInput) (*documents.PresignOutput, error) {
	if s.presignFn != nil {
		return s.presignFn(ctx, actor, input)
	}
	return &documents.PresignOutput{}, nil
}

func (s *testDocumentsService) Create(ctx context.Context, actor auth.Principal, input documents.CreateInput) (*models.Document, error) {
	if s.createFn != nil {
		return s.createFn(ctx, actor, input)
	}
	return &models.Document{}, nil
}

func (s *testDocumentsService) Route(ctx context.Context, actor auth.Principal, input documents.RouteInput) (*models.RoutingRecord, error) {
	if s.routeFn != nil {
		return s.routeFn(ctx, actor, input)
	}
	return &models.RoutingRecord{}, nil
}

func (s *testDocumentsService) Archive(ctx context.Context, actor auth.Principal, input documents.ArchiveInput) (*models.ArchiveRecord, error) {
	if s.archiveFn != nil {
		return s.archiveFn(ctx, actor, input)
	}
	return &models.ArchiveRecord{}, nil
}

func (s *testDocumentsService) Delete(ctx context.Context, actor auth.Principal, input documents.DeleteInput) (*documents.DeleteResult, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, actor, input)
	}
	return &documents.DeleteResult{}, nil
}

func (s *testDocumentsService) Edit(ctx context.Context, actor auth.Principal, input documents.EditInput) (*models.Document, error) {
	if s.editFn != nil {
		return s.editFn(ctx, actor, input)
	}
	return &models.Document{}, nil
}

func (s *testDocumentsService) List(ctx context.Context, actor auth.Principal, params documents.ListParams) (*documents.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor, params)
	}
	return &documents.ListResult{}, nil
}

func (s *testDocumentsService) ListArchived(ctx context.Context, actor auth.Principal, params documents.ListParams) (*documents.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor, params)
	}
	return &documents.ListResult{}, nil
}

func (s *testDocumentsService) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*documents.Detail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actor, id)
	}
	return &documents.Detail{}, nil
}

func (s *testDocumentsService) RoutingTimeline(ctx context.Context, actor auth.Principal, id uuid.UUID) ([]documents.TimelineStep, error) {
	if s.timelineFn != nil {
		return s.timelineFn(ctx, actor, id)
	}
	return nil, nil
}

func (s *testDocumentsService) StatusCounts(ctx context.Context, actor auth.Principal) (map[enums.DocumentStatus]int64, error) {
	if s.countsFn != nil {
		return s.countsFn(ctx, actor)
	}
	return map[enums.DocumentStatus]int64{}, nil
}

func (s *testDocumentsService) FileURL(ctx context.Context, actor auth.Principal, id uuid.UUID) (*documents.FileURLOutput, error) {
	if s.fileURLFn != nil {
		return s.fileURLFn(ctx, actor, id)
	}
	return &documents.FileURLOutput{}, nil
}

type testHistoryService struct {
	listFn func(ctx context.Context, documentID uuid.UUID) ([]models.HistoryEntry, error)
}

func (s *testHistoryService) Record(ctx context.Context, tx *gorm.DB, input history.RecordEntryInput) (*models.HistoryEntry, error) {
	return &models.HistoryEntry{}, nil
}

func (s *testHistoryService) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.HistoryEntry, error) {
	if s.listFn != nil {
		return s.listFn(ctx, documentID)
	}
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleStaff}
	return req.WithContext(middleware.WithPrincipal(req.Context(), principal))
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestDocumentsCreateSuccess(t *testing.T) {
	created := false
	svc := &testDocumentsService{
		createFn: func(ctx context.Context, actor auth.Principal, input documents.CreateInput) (*models.Document, error) {
			created = true
			if input.Title != "Q3 forecast" {
				t.Fatalf("unexpected title %q", input.Title)
			}
			if input.Priority != enums.DocumentPriorityHigh {
				t.Fatalf("unexpected priority %q", input.Priority)
			}
			return &models.Document{ID: uuid.New(), Title: input.Title}, nil
		},
	}

	body := `{"title":"Q3 forecast","type":"report","priority":"high","file_ref":"documents/x/forecast.pdf","file_size":2048}`
	req := authedRequest(http.MethodPost, "/api/v1/documents", body)
	resp := httptest.NewRecorder()
	DocumentsCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !created {
		t.Fatal("expected service called")
	}
}

func TestDocumentsCreateRejectsInvalidBody(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/documents", `{"type":"report"}`)
	resp := httptest.NewRecorder()
	DocumentsCreate(&testDocumentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDocumentsCreateRequiresPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	DocumentsCreate(&testDocumentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestDocumentsRouteSuccess(t *testing.T) {
	documentID := uuid.New()
	toUser := uuid.New()
	svc := &testDocumentsService{
		routeFn: func(ctx context.Context, actor auth.Principal, input documents.RouteInput) (*models.RoutingRecord, error) {
			if input.DocumentID != documentID {
				t.Fatalf("unexpected document %s", input.DocumentID)
			}
			if input.ToUser != toUser {
				t.Fatalf("unexpected target %s", input.ToUser)
			}
			if input.Action != enums.ActionForwarded {
				t.Fatalf("unexpected action %q", input.Action)
			}
			return &models.RoutingRecord{ID: uuid.New(), DocumentID: documentID, IsCurrent: true}, nil
		},
	}

	body := `{"to_user":"` + toUser.String() + `","action":"forwarded","remarks":"please sign"}`
	req := authedRequest(http.MethodPost, "/api/v1/documents/"+documentID.String()+"/route", body)
	req = addRouteParam(req, "documentID", documentID.String())
	resp := httptest.NewRecorder()
	DocumentsRoute(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDocumentsRouteRejectsBadUUID(t *testing.T) {
	documentID := uuid.New()
	body := `{"to_user":"not-a-uuid","action":"forwarded"}`
	req := authedRequest(http.MethodPost, "/api/v1/documents/"+documentID.String()+"/route", body)
	req = addRouteParam(req, "documentID", documentID.String())
	resp := httptest.NewRecorder()
	DocumentsRoute(&testDocumentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDocumentsArchiveConflictPassesThrough(t *testing.T) {
	documentID := uuid.New()
	svc := &testDocumentsService{
		archiveFn: func(ctx context.Context, actor auth.Principal, input documents.ArchiveInput) (*models.ArchiveRecord, error) {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyArchived, "document already archived")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/documents/"+documentID.String()+"/archive", `{"reason":"done"}`)
	req = addRouteParam(req, "documentID", documentID.String())
	resp := httptest.NewRecorder()
	DocumentsArchive(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestDocumentsDeleteReportsBlobFailure(t *testing.T) {
	documentID := uuid.New()
	svc := &testDocumentsService{
		deleteFn: func(ctx context.Context, actor auth.Principal, input documents.DeleteInput) (*documents.DeleteResult, error) {
			return &documents.DeleteResult{DocumentID: documentID, BlobDeleted: false, BlobError: "gcs unavailable"}, nil
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/documents/"+documentID.String(), "")
	req = addRouteParam(req, "documentID", documentID.String())
	resp := httptest.NewRecorder()
	DocumentsDelete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data documents.DeleteResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.BlobDeleted {
		t.Fatal("expected blob failure to be surfaced")
	}
	if envelope.Data.BlobError == "" {
		t.Fatal("expected blob error message")
	}
}

func TestDocumentsListParsesFilters(t *testing.T) {
	var got documents.ListParams
	svc := &testDocumentsService{
		listFn: func(ctx context.Context, actor auth.Principal, params documents.ListParams) (*documents.ListResult, error) {
			got = params
			return &documents.ListResult{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/documents?status=pending&priority=high&type=memo&search=budget&limit=5", "")
	resp := httptest.NewRecorder()
	DocumentsList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !got.HasStatus || got.Status != enums.DocumentStatusPending {
		t.Fatalf("status filter not parsed: %+v", got)
	}
	if !got.HasPriority || got.Priority != enums.DocumentPriorityHigh {
		t.Fatalf("priority filter not parsed: %+v", got)
	}
	if got.Type != "memo" || got.Search != "budget" || got.Limit != 5 {
		t.Fatalf("unexpected params: %+v", got)
	}
}

func TestDocumentsListRejectsBadLimit(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/documents?limit=oops", "")
	resp := httptest.NewRecorder()
	DocumentsList(&testDocumentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDocumentsHistoryChecksVisibility(t *testing.T) {
	documentID := uuid.New()
	svc := &testDocumentsService{
		getFn: func(ctx context.Context, actor auth.Principal, id uuid.UUID) (*documents.Detail, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "document is not visible to this user")
		},
	}
	histSvc := &testHistoryService{
		listFn: func(ctx context.Context, id uuid.UUID) ([]models.HistoryEntry, error) {
			t.Fatal("history must not be listed when visibility check fails")
			return nil, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/documents/"+documentID.String()+"/history", "")
	req = addRouteParam(req, "documentID", documentID.String())
	resp := httptest.NewRecorder()
	DocumentsHistory(svc, histSvc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestDocumentsGetRejectsBadParam(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/documents/not-a-uuid", "")
	req = addRouteParam(req, "documentID", "not-a-uuid")
	resp := httptest.NewRecorder()
	DocumentsGet(&testDocumentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

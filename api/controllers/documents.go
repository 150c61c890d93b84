package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/docroute/docroute-backend/api/middleware"
	"github.com/docroute/docroute-backend/api/responses"
	"github.com/docroute/docroute-backend/api/validators"
	"github.com/docroute/docroute-backend/internal/documents"
	"github.com/docroute/docroute-backend/internal/history"
	"github.com/docroute/docroute-backend/pkg/auth"
	"github.com/docroute/docroute-backend/pkg/enums"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/logger"
)

const maxListLimit = 100

func requirePrincipal(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return auth.Principal{}, false
	}
	return principal, true
}

func clientIP(r *http.Request) *string {
	if ip := middleware.ClientIPFromContext(r.Context()); ip != "" {
		return &ip
	}
	return nil
}

type documentPresignRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,min=1"`
}

// DocumentsPresign returns a signed PUT URL for a pending upload.
func DocumentsPresign(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		var payload documentPresignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.PresignUpload(r.Context(), principal, documents.PresignInput{
			FileName:    payload.FileName,
			ContentType: payload.ContentType,
			SizeBytes:   payload.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

type documentCreateRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Type        string  `json:"type" validate:"required,max=100"`
	Priority    string  `json:"priority"`
	FileRef     string  `json:"file_ref" validate:"required"`
	FileSize    int64   `json:"file_size" validate:"min=0"`
}

// DocumentsCreate registers an uploaded file in the ledger.
func DocumentsCreate(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		var payload documentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc, err := svc.Create(r.Context(), principal, documents.CreateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Type:        payload.Type,
			Priority:    enums.DocumentPriority(strings.TrimSpace(payload.Priority)),
			FileRef:     payload.FileRef,
			FileSize:    payload.FileSize,
			IPAddress:   clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, doc)
	}
}

func parseListParams(r *http.Request) (documents.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxListLimit)
	if err != nil {
		return documents.ListParams{}, err
	}

	params := documents.ListParams{
		Type:   r.URL.Query().Get("type"),
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		params.HasStatus = true
		params.Status = enums.DocumentStatus(raw)
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("priority")); raw != "" {
		params.HasPriority = true
		params.Priority = enums.DocumentPriority(raw)
	}
	return params, nil
}

// DocumentsList returns the caller's active documents.
func DocumentsList(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), principal, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DocumentsArchivedList returns the caller's archived documents.
func DocumentsArchivedList(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListArchived(r.Context(), principal, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DocumentsStatusCounts returns document counts grouped by status.
func DocumentsStatusCounts(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		counts, err := svc.StatusCounts(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, counts)
	}
}

// DocumentsGet returns the full detail view of one document.
func DocumentsGet(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

type documentEditRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Type        *string `json:"type" validate:"omitempty,max=100"`
	Priority    *string `json:"priority"`
}

// DocumentsEdit updates document metadata.
func DocumentsEdit(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload documentEditRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := documents.EditInput{
			DocumentID:  id,
			Title:       payload.Title,
			Description: payload.Description,
			Type:        payload.Type,
			IPAddress:   clientIP(r),
		}
		if payload.Priority != nil {
			priority := enums.DocumentPriority(strings.TrimSpace(*payload.Priority))
			input.Priority = &priority
		}

		doc, err := svc.Edit(r.Context(), principal, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, doc)
	}
}

type documentRouteRequest struct {
	ToUser  string  `json:"to_user" validate:"required,uuid"`
	Action  string  `json:"action" validate:"required,max=50"`
	Remarks *string `json:"remarks" validate:"omitempty,max=1000"`
}

// DocumentsRoute moves custody of a document to another user.
func DocumentsRoute(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload documentRouteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toUser, err := uuid.Parse(payload.ToUser)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to_user"))
			return
		}

		record, err := svc.Route(r.Context(), principal, documents.RouteInput{
			DocumentID: id,
			ToUser:     toUser,
			Action:     enums.RoutingAction(strings.TrimSpace(payload.Action)),
			Remarks:    payload.Remarks,
			IPAddress:  clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

type documentArchiveRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// DocumentsArchive retires a document from active routing.
func DocumentsArchive(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload documentArchiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Archive(r.Context(), principal, documents.ArchiveInput{
			DocumentID: id,
			Reason:     payload.Reason,
			IPAddress:  clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// DocumentsDelete hard-deletes a document and its dependent rows.
func DocumentsDelete(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Delete(r.Context(), principal, documents.DeleteInput{
			DocumentID: id,
			IPAddress:  clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DocumentsTimeline returns the custody trail with resolved display names.
func DocumentsTimeline(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		steps, err := svc.RoutingTimeline(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, steps)
	}
}

// DocumentsHistory returns the audit trail. Visibility is enforced by loading
// the document through the lifecycle service first.
func DocumentsHistory(svc documents.Service, histSvc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.Get(r.Context(), principal, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := histSvc.ListByDocument(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load history"))
			return
		}

		responses.WriteSuccess(w, entries)
	}
}

// DocumentsFileURL returns a short-lived signed download URL.
func DocumentsFileURL(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.FileURL(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

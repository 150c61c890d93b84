package controllers

import (
	"net/http"

	"github.com/docroute/docroute-backend/api/responses"
	"github.com/docroute/docroute-backend/internal/users"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/logger"
)

type userSummary struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	Department *string `json:"department,omitempty"`
	Role       string  `json:"role"`
}

// UsersList returns active users for routing target selection.
func UsersList(repo users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requirePrincipal(w, r, logg); !ok {
			return
		}

		active, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users"))
			return
		}

		summaries := make([]userSummary, len(active))
		for i, user := range active {
			summaries[i] = userSummary{
				ID:         user.ID.String(),
				FullName:   user.FullName,
				Department: user.Department,
				Role:       string(user.Role),
			}
		}

		responses.WriteSuccess(w, summaries)
	}
}

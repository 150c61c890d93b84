package middleware

import (
	"fmt"
	"net/http"

	"github.com/docroute/docroute-backend/api/responses"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/logger"
)

// Recoverer turns handler panics into 500 responses instead of dropping the
// connection. Outermost middleware so it also covers the rest of the chain.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverPanic(w, r, logg)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverPanic(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	rec := recover()
	if rec == nil {
		return
	}

	err := fmt.Errorf("panic: %v", rec)
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithField(ctx, "panic", rec)
		logg.Error(ctx, "panic.recovered", err)
	}
	responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
}

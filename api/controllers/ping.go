package controllers

import (
	"net/http"

	"github.com/docroute/docroute-backend/api/middleware"
	"github.com/docroute/docroute-backend/api/responses"
)

// PublicPing answers without authentication; load balancer smoke checks hit it.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing answers behind the JWT middleware and echoes the caller's id,
// which makes it a quick token sanity check.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
			payload["user_id"] = principal.UserID.String()
		}
		responses.WriteSuccess(w, payload)
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/suyogshakya/khajaghar-backend/api/middleware"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

// actorFromRequest pulls the authenticated user identity that the auth
// middleware seeded into the request context.
func actorFromRequest(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	return userID, role, nil
}

func parsePathUUID(r *http.Request, param, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}

package middleware

import (
	"net/http"

	"github.com/Omkark04/agency-platform-backend/api/responses"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

// Roles recognized by the order workflow.
const (
	RoleAdmin       = "admin"
	RoleServiceHead = "service-head"
)

// RequireAnyRole rejects requests whose actor role is not in the allow list.
func RequireAnyRole(logg *logger.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if _, ok := allowed[role]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this operation"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

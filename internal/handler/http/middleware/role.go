package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/response"
)

// guard lets the request through when allow accepts the actor, otherwise answers with deny(actor).
// Requests without an actor are always denied.
func guard(allow func(user.Actor) bool, deny func(user.Actor) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || !allow(actor) {
				response.HandleError(w, deny(actor))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	// RequireElevated admits hr and admin.
	RequireElevated = guard(user.Actor.IsElevated, func(user.Actor) error {
		return user.Deny(user.ErrElevatedAccessRequired)
	})

	// RequireAdmin admits admin only.
	RequireAdmin = guard(user.Actor.IsAdmin, func(user.Actor) error {
		return user.Deny(user.ErrAdminPrivilegeRequired)
	})
)

// RequirePermission admits roles granted perm in the role table.
func RequirePermission(perm user.Permission) func(http.Handler) http.Handler {
	return guard(
		func(a user.Actor) bool { return user.HasPermission(a.Role, perm) },
		func(a user.Actor) error {
			if a.Role == "" {
				return user.Forbidden(fmt.Sprintf("%s required", perm))
			}
			return user.Forbidden(fmt.Sprintf("%s required, role %s lacks it", perm, a.Role))
		},
	)
}

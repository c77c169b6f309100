package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type actorKey struct{}

// WithActor stores the authenticated caller in ctx.
func WithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller stored by AuthRequired.
func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(user.Actor)
	return actor, ok
}

// AuthRequired rejects requests without a verified access token and puts the
// resulting user.Actor in the request context. Run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.Unauthorized(w, "Missing access token")
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TypeAccess {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		actor, err := user.ActorFromClaims(claims)
		if err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	}
	return http.HandlerFunc(hfn)
}

// EmployeeProfiles finds the directory entry linked to a login.
type EmployeeProfiles interface {
	GetByUserID(ctx context.Context, userID string) (employee.Employee, error)
}

// LinkEmployeeProfile fills Actor.EmployeeID from the directory when the token carries none.
// Users without a profile in their own company pass through unchanged. Run after AuthRequired.
func LinkEmployeeProfile(profiles EmployeeProfiles) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || actor.EmployeeID != "" {
				next.ServeHTTP(w, r)
				return
			}

			emp, err := profiles.GetByUserID(r.Context(), actor.UserID)
			switch {
			case errors.Is(err, employee.ErrEmployeeNotFound):
			case err != nil:
				slog.Error("Auth: employee profile lookup failed", "user_id", actor.UserID, "error", err)
				response.InternalServerError(w, "Failed to resolve employee profile")
				return
			case emp.CompanyID == actor.CompanyID:
				actor.EmployeeID = emp.ID
				r = r.WithContext(WithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

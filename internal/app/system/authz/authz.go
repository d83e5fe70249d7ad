// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's canonical role, name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// Visitor, "", NilObjectID, false. ok=true means a valid, authenticated user.
func UserCtx(r *http.Request) (role models.Role, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return models.RoleVisitor, "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return models.RoleVisitor, "", primitive.NilObjectID, false
	}
	return normalize.Role(user.Role), user.Name, userID, true
}

// UserGroupID returns the current user's assigned group, if any.
func UserGroupID(r *http.Request) (primitive.ObjectID, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.GroupID == "" {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(user.GroupID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// Permissions returns the derived capability set of the current user.
// Signed-out visitors get the Visitor row.
func Permissions(r *http.Request) models.Permissions {
	role, _, _, _ := UserCtx(r)
	return Derive(role)
}

// Has reports whether the current user holds capability c.
func Has(r *http.Request, c models.Capability) bool {
	_, _, _, ok := UserCtx(r)
	return ok && Permissions(r).Has(c)
}

// HasAnyRole reports whether the current request's user has any of the given roles.
func HasAnyRole(r *http.Request, roles ...models.Role) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == want {
			return true
		}
	}
	return false
}

// IsMainAdmin reports whether the current request's user is the main admin.
func IsMainAdmin(r *http.Request) bool {
	return HasAnyRole(r, models.RoleMainAdmin)
}

// IsAdmin reports whether the current user is any kind of admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role.IsAdmin()
}

// RequirePermission only lets requests through when the signed-in user
// holds capability c. Unauthenticated requests get 401, others 403.
func RequirePermission(c models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, _, _, ok := UserCtx(r); !ok {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte("{\"error\":\"unauthorized\"}\n"))
				return
			}
			if !Has(r, c) {
				auth.Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// internal/membership/middleware.go
package membership

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"bookstack/internal/shared"
)

type contextKey int

const requesterKey contextKey = iota

// Identify resolves the caller's identity from the X-Member-ID and
// X-Member-Role headers set by the authentication front end (session and
// token handling live outside this system) and stores it on the request
// context. Requests without an identity pass through anonymously; scoped
// endpoints reject them.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idHeader := r.Header.Get("X-Member-ID")
		if idHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(idHeader)
		if err != nil {
			shared.WriteError(w, shared.NewError("INVALID_ARGUMENT", "malformed X-Member-ID header"))
			return
		}
		role := Role(r.Header.Get("X-Member-Role"))
		if !role.Valid() {
			role = RoleMember
		}

		ctx := context.WithValue(r.Context(), requesterKey, Requester{MemberID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequesterFrom extracts the caller identity stored by Identify.
func RequesterFrom(ctx context.Context) (Requester, bool) {
	req, ok := ctx.Value(requesterKey).(Requester)
	return req, ok
}

// RequireRequester writes a Forbidden response and returns false when the
// request carries no identity.
func RequireRequester(w http.ResponseWriter, r *http.Request) (Requester, bool) {
	req, ok := RequesterFrom(r.Context())
	if !ok {
		shared.WriteError(w, shared.NewError("FORBIDDEN", "authentication required"))
		return Requester{}, false
	}
	return req, true
}

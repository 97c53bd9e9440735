package middleware

import (
	"net/http"
	"strings"

	"go-wiki-store/internal/logger"

	"github.com/casbin/casbin/v2"
)

// UserHeader carries the subject a request acts as. Authentication happens
// upstream of this service.
const UserHeader = "X-Wiki-User"

// Authorizer creates a new middleware for authorization.
// It checks the caller's permissions on the request path and method using Casbin.
func Authorizer(e casbin.IEnforcer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := strings.TrimSpace(r.Header.Get(UserHeader))
			if subject == "" {
				subject = AnonymousSubject
			}
			r = r.WithContext(SetUserInfo(r.Context(), &UserInfo{Subject: subject}))

			allowed, err := e.Enforce(subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization check failed")
				writeError(w, http.StatusInternalServerError, "authorization error")
				return
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

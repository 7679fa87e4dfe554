package auth

import (
	"net/http"

	"github.com/godown-erp/godown/internal/shared"
)

// RequireOperator guards protected routes: requests without a logged-in
// session are redirected to the login page. Applied once on the protected
// route group instead of repeating the check in every handler.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

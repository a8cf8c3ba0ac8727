package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"onecall/pkg/jwt"
)

type contextKey string

const AccountKey contextKey = "account"

// Account returns the account the request was authenticated as.
func Account(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(AccountKey).(string)
	return account, ok && account != ""
}

// JWTAuth accepts "Authorization: Bearer <token>" signed with secret and
// stores the token subject under AccountKey.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			account, err := jwt.ParseToken(secret, token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BasicAuth guards internal endpoints such as /metrics.
func BasicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

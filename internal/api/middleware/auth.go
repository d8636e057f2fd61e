package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chessroom/chessroom/internal/api/apierr"
	"github.com/chessroom/chessroom/internal/model"
	"github.com/chessroom/chessroom/internal/services/session"
)

type contextKey string

const (
	accountContextKey contextKey = "account"
	sessionContextKey contextKey = "session"
)

// AccountHeader names the account the bearer token belongs to. Sessions are
// keyed by account, so the token alone is not enough to look one up.
const AccountHeader = "X-Account-ID"

// Auth creates authentication middleware. Every authenticated request also
// counts as a liveness signal for the session.
func Auth(authority *session.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, token := extractCredentials(r)
			if accountID == "" || token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			sess, err := authority.ValidateSession(r.Context(), accountID, token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, sessionContextKey, sess)
			ctx = context.WithValue(ctx, accountContextKey, sess.AccountID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Credentials pulls the account ID and bearer token from the request
// without validating them. Used by endpoints that must accept stale tokens,
// like session end.
func Credentials(r *http.Request) (model.AccountID, string) {
	return extractCredentials(r)
}

// extractCredentials pulls the account ID and bearer token from the request
func extractCredentials(r *http.Request) (model.AccountID, string) {
	accountID := model.AccountID(r.Header.Get(AccountHeader))

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return accountID, strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to query params for websocket dials, where browsers cannot
	// set headers
	if token := r.URL.Query().Get("token"); token != "" {
		if accountID == "" {
			accountID = model.AccountID(r.URL.Query().Get("account"))
		}
		return accountID, token
	}

	return accountID, ""
}

// GetAccount returns the authenticated account ID from the request context
func GetAccount(ctx context.Context) model.AccountID {
	account, _ := ctx.Value(accountContextKey).(model.AccountID)
	return account
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionContextKey).(*model.Session)
	return sess
}

// MustGetAccount returns the authenticated account ID or panics
func MustGetAccount(ctx context.Context) model.AccountID {
	account := GetAccount(ctx)
	if account == "" {
		panic("no account in context - auth middleware not applied?")
	}
	return account
}

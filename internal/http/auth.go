package http

import (
	"context"
	"net/http"
	"strings"

	"tripledger/internal/auth"
	applog "tripledger/internal/log"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "email"
)

// UserID returns the authenticated user's ID, or "" outside requireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func Email(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// requireAuth validates the Bearer token and stores the user in the request
// context. The request logger gains a user_id attribute.
func requireAuth(tokens *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, r, auth.ErrMissingToken)
				return
			}

			parts := strings.Fields(header)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, r, auth.ErrInvalidToken)
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			logger := applog.FromContext(ctx).With(applog.FieldUserID, claims.UserID)
			ctx = applog.NewContext(ctx, logger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"boardpacks/internal/actor"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Protected verifies the HS256 bearer token issued by the auth service and puts its subject into
// the request context as the acting user. Browsers cannot set headers on an EventSource, so the
// token may also arrive as the access_token query parameter.
func Protected(jwtSecret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				slog.DebugContext(r.Context(), "rejected bearer token", slog.Any("err", err))
				Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			subStr, _ := claims["sub"].(string)
			userID, err := uuid.Parse(subStr)
			if err != nil || userID == uuid.Nil {
				Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			ctx := actor.With(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

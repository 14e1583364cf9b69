package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boardpacks/internal/actor"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestProtected(t *testing.T) {
	userID := uuid.New()
	valid := signed(t, testSecret, jwt.MapClaims{"sub": userID.String(), "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer " + valid, want: http.StatusOK},
		{name: "query param", query: "?access_token=" + valid, want: http.StatusOK},
		{name: "wrong secret", header: "Bearer " + signed(t, "other", jwt.MapClaims{"sub": userID.String()}), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signed(t, testSecret, jwt.MapClaims{"sub": userID.String(), "exp": time.Now().Add(-time.Hour).Unix()}), want: http.StatusUnauthorized},
		{name: "non uuid subject", header: "Bearer " + signed(t, testSecret, jwt.MapClaims{"sub": "42"}), want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen uuid.UUID
			handler := Protected(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = actor.From(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/packs"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != userID {
				t.Fatalf("actor = %v, want %v", seen, userID)
			}
		})
	}
}

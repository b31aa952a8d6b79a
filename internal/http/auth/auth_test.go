package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return s
}

func TestMiddleware(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "UserIDClaim",
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"userId": "u-42", "exp": exp}),
			wantStatus: http.StatusOK,
			wantUser:   "u-42",
		},
		{
			name:       "SubjectFallback",
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u-7", "exp": exp}),
			wantStatus: http.StatusOK,
			wantUser:   "u-7",
		},
		{
			name:       "Missing",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongSecret",
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"userId": "u-42"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Expired",
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"userId": "u-42", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "NoUser",
			header:     "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongAlgorithm",
			header:     "Bearer " + sign(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{"userId": "u-42"}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string

			h := Middleware(secret, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = UserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, got)
		})
	}
}

func TestMiddleware_DevUser(t *testing.T) {
	var got string

	h := Middleware(nil, "local")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserID(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "local", got)
}

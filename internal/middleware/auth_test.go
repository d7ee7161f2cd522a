package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protected() http.Handler {
	return AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if IsSuperuser(r.Context()) {
			w.Header().Set("X-Superuser", "true")
		}
		w.Header().Set("X-User", strconv.FormatInt(id, 10))
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	InitAuthMiddleware(nil, nil)

	valid := jwt.MapClaims{
		"user_id":      1,
		"is_superuser": true,
		"exp":          time.Now().Add(time.Hour).Unix(),
	}

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		protected().ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, "other", valid))
		w := httptest.NewRecorder()
		protected().ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Minute).Unix()}
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", expired))
		w := httptest.NewRecorder()
		protected().ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", valid))
		w := httptest.NewRecorder()
		protected().ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", w.Header().Get("X-Superuser"))
		assert.Equal(t, "1", w.Header().Get("X-User"))
	})

	t.Run("blacklisted token", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		InitAuthMiddleware(client, nil)
		defer InitAuthMiddleware(nil, nil)

		token := signToken(t, "test-secret", valid)
		mock.ExpectExists(BlacklistKey(token)).SetVal(1)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		protected().ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthMiddleware_UserLookup(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	token := signToken(t, "test-secret", jwt.MapClaims{
		"user_id":      7,
		"is_superuser": true,
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
	const lookup = "SELECT is_active, is_superuser FROM users WHERE id = \\$1"

	tests := []struct {
		name      string
		expect    func(mock sqlmock.Sqlmock)
		status    int
		superuser string
	}{
		{
			name: "active superuser",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookup).WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"is_active", "is_superuser"}).AddRow(true, true))
			},
			status:    http.StatusOK,
			superuser: "true",
		},
		{
			name: "demoted user loses superuser rights",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookup).WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"is_active", "is_superuser"}).AddRow(true, false))
			},
			status: http.StatusOK,
		},
		{
			name: "deactivated user",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookup).WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"is_active", "is_superuser"}).AddRow(false, true))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "deleted user",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookup).WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"is_active", "is_superuser"}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "database down",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lookup).WithArgs(7).WillReturnError(errors.New("connection refused"))
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			InitAuthMiddleware(nil, db)
			defer InitAuthMiddleware(nil, nil)
			tt.expect(mock)

			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			protected().ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.superuser, w.Header().Get("X-Superuser"))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRequireSuperuser(t *testing.T) {
	handler := RequireSuperuser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("regular user", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r = r.WithContext(WithClaims(r.Context(), &Claims{UserID: 2}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("superuser", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r = r.WithContext(WithClaims(r.Context(), &Claims{UserID: 1, IsSuperuser: true}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

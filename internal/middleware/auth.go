package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	superuserKey contextKey = "isSuperuser"
)

var (
	redisClient *redis.Client
	userDB      *sql.DB
)

// InitAuthMiddleware wires the Redis client used for the token blacklist and
// the database holding user accounts. A nil client disables the blacklist
// check. With a nil db the token claims are trusted as issued.
func InitAuthMiddleware(client *redis.Client, db *sql.DB) {
	redisClient = client
	userDB = db
}

// Claims extracted from a valid access token.
type Claims struct {
	UserID      int64
	IsSuperuser bool
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Extract token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]

		if isBlacklisted(r.Context(), token) {
			writeError(w, "Token has been revoked", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected access token")
			writeError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Deactivation and superuser changes apply to tokens already issued.
		if err := refreshClaims(r.Context(), claims); err != nil {
			switch {
			case errors.Is(err, errInactiveUser):
				writeError(w, "Inactive user", http.StatusUnauthorized)
			case errors.Is(err, sql.ErrNoRows):
				writeError(w, "Invalid token", http.StatusUnauthorized)
			default:
				log.Error().Err(err).Int64("user_id", claims.UserID).Msg("User lookup failed")
				writeError(w, "Unable to verify user", http.StatusInternalServerError)
			}
			return
		}

		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperuser rejects callers who are not superusers.
// It must run after AuthMiddleware.
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsSuperuser(r.Context()) {
			writeError(w, "Superuser privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateToken parses an HS256 token signed with jwt.secret_key.
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	rawID, ok := mapClaims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("user_id claim missing")
	}
	superuser, _ := mapClaims["is_superuser"].(bool)

	return &Claims{UserID: int64(rawID), IsSuperuser: superuser}, nil
}

var errInactiveUser = errors.New("user is inactive")

// refreshClaims replaces the superuser flag with the stored one and rejects
// inactive or deleted users.
func refreshClaims(ctx context.Context, claims *Claims) error {
	if userDB == nil {
		return nil
	}
	var active, superuser bool
	err := userDB.QueryRowContext(ctx,
		`SELECT is_active, is_superuser FROM users WHERE id = $1`, claims.UserID).
		Scan(&active, &superuser)
	if err != nil {
		return err
	}
	if !active {
		return errInactiveUser
	}
	claims.IsSuperuser = superuser
	return nil
}

// WithClaims stores the caller identity in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	return context.WithValue(ctx, superuserKey, claims.IsSuperuser)
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// IsSuperuser reports whether the authenticated caller is a superuser.
func IsSuperuser(ctx context.Context) bool {
	v, _ := ctx.Value(superuserKey).(bool)
	return v
}

// BlacklistKey is the Redis key marking a revoked token.
func BlacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func isBlacklisted(ctx context.Context, token string) bool {
	if redisClient == nil {
		return false
	}
	n, err := redisClient.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Token blacklist lookup failed")
		return false
	}
	return n > 0
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

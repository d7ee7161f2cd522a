package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charityfund/backend/internal/middleware"
	"github.com/charityfund/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordTooShort      = errors.New("password should be at least 3 characters")
	ErrPasswordContainsEmail = errors.New("password should not contain e-mail")
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	logger    zerolog.Logger
	now       func() time.Time
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"` // User email
	Password string `json:"password" validate:"required" example:"password123"`        // User password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"` // User email address
	Password string `json:"password" validate:"required" example:"password123"`        // User password
}

// TokenResponse represents the login response
// @Description Bearer token structure
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	TokenType   string `json:"token_type" example:"bearer"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		logger:    log.With().Str("component", "auth").Logger(),
		now:       time.Now,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} models.User "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Email already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Str("ip", r.RemoteAddr).Msg("Registration attempt")

	var req RegisterRequest
	if !DecodeAndValidate(w, r, s.validator, &req) {
		return
	}

	email := strings.ToLower(req.Email)
	if err := validatePassword(req.Password, email); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	user, err := s.createUser(r.Context(), email, req.Password, false)
	if isUniqueViolation(err) {
		s.logger.Info().Str("email", email).Msg("Registration rejected, email exists")
		SendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("User creation failed")
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("User registered")
	WriteJSON(w, http.StatusCreated, user)
}

// EnsureSuperuser creates the bootstrap superuser unless the email is taken.
func (s *AuthService) EnsureSuperuser(ctx context.Context, email, password string) error {
	email = strings.ToLower(email)
	if err := validatePassword(password, email); err != nil {
		return err
	}

	_, err := s.createUser(ctx, email, password, true)
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("Superuser created")
	return nil
}

func (s *AuthService) createUser(ctx context.Context, email, password string, superuser bool) (*models.User, error) {
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, IsActive: true, IsSuperuser: superuser}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password, is_active, is_superuser)
		VALUES ($1, $2, true, $3)
		RETURNING id, created_at`,
		email, hashedPassword, superuser).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} TokenResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/jwt/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !DecodeAndValidate(w, r, s.validator, &req) {
		return
	}

	email := strings.ToLower(req.Email)

	var user models.User
	var hashedPassword string
	err := s.db.QueryRowContext(r.Context(),
		"SELECT id, email, password, is_active, is_superuser, created_at FROM users WHERE email = $1",
		email).Scan(&user.ID, &user.Email, &hashedPassword, &user.IsActive, &user.IsSuperuser, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info().Str("email", email).Msg("Login for unknown user")
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("User lookup failed")
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) || !user.IsActive {
		s.logger.Info().Int64("user_id", user.ID).Msg("Login rejected")
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(user.ID, user.IsSuperuser, s.now())
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("JWT generation failed")
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("Login successful")
	WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout handles user logout
// @Summary Logout user
// @Description Blacklist the bearer token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/jwt/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if ok && token != "" && s.redis != nil {
		ttl := tokenTTL(token, s.now())
		if ttl > 0 {
			if err := s.redis.Set(r.Context(), middleware.BlacklistKey(token), "1", ttl).Err(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to blacklist token")
				SendErrorResponse(w, "Logout failed", http.StatusInternalServerError, nil)
				return
			}
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Me returns the authenticated user
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/me [get]
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var user models.User
	err := s.db.QueryRowContext(r.Context(),
		"SELECT id, email, is_active, is_superuser, created_at FROM users WHERE id = $1",
		userID).Scan(&user.ID, &user.Email, &user.IsActive, &user.IsSuperuser, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to fetch user")
		SendErrorResponse(w, "Failed to fetch user details", http.StatusInternalServerError, nil)
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

func validatePassword(password, email string) error {
	if len(password) < 3 {
		return ErrPasswordTooShort
	}
	if strings.Contains(strings.ToLower(password), email) {
		return ErrPasswordContainsEmail
	}
	return nil
}

func generateJWT(userID int64, superuser bool, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":      userID,
		"is_superuser": superuser,
		"exp":          issuedAt.Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// tokenTTL is how long token stays valid after now. Unparseable tokens are
// already rejected by AuthMiddleware, so they report zero.
func tokenTTL(token string, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Time.Sub(now)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}

// Package auth verifies user credentials, applies the login throttle, and
// issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/udecfit/backend/internal/crypto"
	"github.com/udecfit/backend/internal/docstore"
	"github.com/udecfit/backend/internal/model"
	"github.com/udecfit/backend/internal/throttle"
)

// Collections used by the auth flow. credentialsCollection is keyed by
// normalized email, usersCollection by user id.
const (
	credentialsCollection = "authUsers"
	usersCollection       = "users"
)

const defaultTokenTTL = 24 * time.Hour

var (
	// ErrMissingFields is returned when email or password is empty.
	ErrMissingFields = errors.New("email and password are required")

	// ErrInvalidCredentials is the generic failure returned for a wrong
	// password, an unknown email, or a provider error. Deliberately vague
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrProfileNotFound is returned when credentials verify but the user
	// has no profile document.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrEmailTaken is returned by Register for an already-registered email.
	ErrEmailTaken = errors.New("email is already registered")
)

// Routes selected after a successful login.
const (
	RouteAdmin = "admin"
	RouteHome  = "home"
)

// Result is returned on successful login.
type Result struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Route  string `json:"route"`
}

// Service implements the login and registration flows.
type Service struct {
	docs      docstore.Store
	throttle  *throttle.Throttle
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an auth Service.
func NewService(docs docstore.Store, th *throttle.Throttle, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		docs:      docs,
		throttle:  th,
		jwtSecret: jwtSecret,
		tokenTTL:  defaultTokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Login verifies the credentials for email and returns a signed session
// token plus the route the client should navigate to. Failed attempts feed
// the throttle; a *throttle.BlockedError is returned while the email is
// locked out.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	key := throttle.NormalizeEmail(email)

	// Blocked emails are rejected before any credential check.
	if err := s.throttle.Check(ctx, key); err != nil {
		return nil, err
	}

	cred, err := s.docs.GetDocument(ctx, credentialsCollection, key)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, s.fail(ctx, key)
		}
		// Provider errors count as a failed attempt, same as a wrong
		// password.
		s.logger.Warn("credential lookup failed", zap.Error(err))
		return nil, s.fail(ctx, key)
	}

	hash := stringField(cred.Data, "passwordHash")
	salt := stringField(cred.Data, "passwordSalt")
	if !crypto.VerifyPassword(password, hash, salt) {
		return nil, s.fail(ctx, key)
	}

	if err := s.throttle.Success(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to clear login attempts: %w", err)
	}

	userID := stringField(cred.Data, "uid")
	profile, err := s.docs.GetDocument(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}

	role := stringField(profile.Data, "role")
	if role == "" {
		role = model.RoleUser
	}
	route := RouteHome
	if role == model.RoleAdmin {
		route = RouteAdmin
	}

	token, err := s.issueToken(userID, key, role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", zap.String("userId", userID), zap.String("role", role))
	return &Result{Token: token, UserID: userID, Role: role, Route: route}, nil
}

// Register creates the credential and profile documents for a new user.
// New users always get the "user" role; admins are promoted out of band.
func (s *Service) Register(ctx context.Context, email, password, name string) (string, error) {
	if email == "" || password == "" {
		return "", ErrMissingFields
	}
	key := throttle.NormalizeEmail(email)

	if _, err := s.docs.GetDocument(ctx, credentialsCollection, key); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing credentials: %w", err)
	}

	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		return "", err
	}
	userID := uuid.NewString()

	err = s.docs.PutDocument(ctx, credentialsCollection, model.Document{
		ID: key,
		Data: map[string]any{
			"uid":          userID,
			"passwordHash": hash,
			"passwordSalt": salt,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to store credentials: %w", err)
	}

	err = s.docs.PutDocument(ctx, usersCollection, model.Document{
		ID: userID,
		Data: map[string]any{
			"email": key,
			"name":  name,
			"role":  model.RoleUser,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to store profile: %w", err)
	}

	s.logger.Info("user registered", zap.String("userId", userID))
	return userID, nil
}

// fail records a failed attempt and maps the outcome to a caller-facing
// error: BlockedError when a lockout applies, otherwise the generic
// invalid-credentials error.
func (s *Service) fail(ctx context.Context, key string) error {
	err := s.throttle.Failure(ctx, key)
	var blocked *throttle.BlockedError
	if errors.As(err, &blocked) {
		return blocked
	}
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return ErrInvalidCredentials
}

// issueToken signs an HS256 JWT carrying the identity and role claims.
func (s *Service) issueToken(userID, email, role string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

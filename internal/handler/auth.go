package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/udecfit/backend/internal/auth"
	"github.com/udecfit/backend/internal/throttle"
)

// AuthHandler handles login and registration requests.
type AuthHandler struct {
	service *auth.Service
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Login verifies credentials and returns a session token plus the route the
// client should navigate to. The invalid-credentials message never reveals
// attempt counts.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body."), nil
	}

	result, err := h.service.Login(ctx, input.Email, input.Password)
	if err != nil {
		var blocked *throttle.BlockedError
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			return errorResponse(http.StatusBadRequest, "Email and password are required."), nil
		case errors.As(err, &blocked):
			msg := fmt.Sprintf("Too many failed attempts. Try again in %d min.", blocked.RemainingMinutes(time.Now()))
			return errorResponse(http.StatusTooManyRequests, msg), nil
		case errors.Is(err, auth.ErrInvalidCredentials):
			return errorResponse(http.StatusUnauthorized, "Invalid email or password."), nil
		case errors.Is(err, auth.ErrProfileNotFound):
			return errorResponse(http.StatusNotFound, "User profile not found."), nil
		}
		h.logger.Error("login failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Login failed."), nil
	}

	return jsonResponse(http.StatusOK, result), nil
}

// Register creates a new user account with the default role.
func (h *AuthHandler) Register(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body."), nil
	}

	userID, err := h.service.Register(ctx, input.Email, input.Password, input.Name)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			return errorResponse(http.StatusBadRequest, "Email and password are required."), nil
		case errors.Is(err, auth.ErrEmailTaken):
			return errorResponse(http.StatusConflict, "Email is already registered."), nil
		}
		h.logger.Error("registration failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Registration failed."), nil
	}

	return jsonResponse(http.StatusCreated, map[string]string{"userId": userID}), nil
}

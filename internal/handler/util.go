package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated is returned when no valid credential is presented.
	ErrUnauthenticated = errors.New("missing or invalid authorization token")

	// ErrForbidden is returned when a valid credential lacks the required role.
	ErrForbidden = errors.New("insufficient role")
)

// Claims is the verified identity extracted from a session token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// ParseClaims extracts and verifies the Bearer token from the Authorization
// header. Header lookup is case-insensitive because API Gateway does not
// normalize header casing.
func ParseClaims(req events.APIGatewayProxyRequest, jwtSecret string) (*Claims, error) {
	authHeader := ""
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Authorization") {
			authHeader = v
			break
		}
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, ErrUnauthenticated
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthenticated
	}
	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, ErrUnauthenticated
	}
	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	return &Claims{UserID: sub, Email: email, Role: role}, nil
}

// RequireRole verifies the caller's token and checks its role claim. The
// role check runs once at the boundary; handlers never inspect the claim
// themselves.
func RequireRole(req events.APIGatewayProxyRequest, jwtSecret, role string) (*Claims, error) {
	claims, err := ParseClaims(req, jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.Role != role {
		return nil, ErrForbidden
	}
	return claims, nil
}

// jsonResponse marshals payload into an API Gateway response.
func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(payload)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// errorResponse builds the {"error": ...} body used by every failure path.
func errorResponse(status int, msg string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"error": msg})
}

// authErrorResponse maps RequireRole failures to 401 or 403.
func authErrorResponse(err error) events.APIGatewayProxyResponse {
	if errors.Is(err, ErrForbidden) {
		return errorResponse(http.StatusForbidden, "Access denied: admin role required.")
	}
	return errorResponse(http.StatusUnauthorized, "Missing or invalid authorization token.")
}

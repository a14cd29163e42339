package handler_test

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/udecfit/backend/internal/auth"
	"github.com/udecfit/backend/internal/backup"
	"github.com/udecfit/backend/internal/docstore"
	"github.com/udecfit/backend/internal/handler"
	"github.com/udecfit/backend/internal/objectstore"
	"github.com/udecfit/backend/internal/throttle"
)

const (
	testJWTSecret = "test-secret"
	testUserID    = "user-123"
)

// testEnv bundles the in-memory stores and handlers under test.
type testEnv struct {
	docs    *docstore.MemoryStore
	objects *objectstore.MemoryStore
	backup  *handler.BackupHandler
	auth    *handler.AuthHandler
	service *auth.Service
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	docs := docstore.NewMemoryStore()
	objects := objectstore.NewMemoryStore()

	backupService := backup.NewService(docs, objects, logger)
	authService := auth.NewService(docs, throttle.New(throttle.NewMemoryStore()), testJWTSecret, logger)

	return &testEnv{
		docs:    docs,
		objects: objects,
		backup:  handler.NewBackupHandler(backupService, testJWTSecret, logger),
		auth:    handler.NewAuthHandler(authService, logger),
		service: authService,
	}
}

// makeToken signs a token with the given role claim.
func makeToken(role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   testUserID,
		"email": "ana@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))
	return signed
}

// makeRequest builds a request carrying an admin token.
func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"Authorization": "Bearer " + makeToken("admin"),
		},
	}
}

// makeAnonRequest builds a request without credentials.
func makeAnonRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers:    map[string]string{},
	}
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	storagev1 "google.golang.org/api/storage/v1"

	"github.com/udecfit/backend/internal/auth"
	"github.com/udecfit/backend/internal/backup"
	"github.com/udecfit/backend/internal/docstore"
	"github.com/udecfit/backend/internal/handler"
	"github.com/udecfit/backend/internal/objectstore"
	"github.com/udecfit/backend/internal/secret"
	"github.com/udecfit/backend/internal/throttle"
)

// App holds the dependencies for the Lambda function.
type App struct {
	backupHandler    *handler.BackupHandler
	authHandler      *handler.AuthHandler
	apiGatewaySecret string
	logger           *zap.Logger
}

// NewApp initializes the application dependencies from the environment.
func NewApp(ctx context.Context) *App {
	devMode := os.Getenv("DEV_MODE") == "true"

	var logger *zap.Logger
	var err error
	if devMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("unable to build logger, %v", err))
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}
	dynamoClient := dynamodb.NewFromConfig(cfg)

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
		logger.Info("using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	jwtSecretParam := os.Getenv("JWT_SECRET_PARAM")
	if jwtSecretParam == "" {
		jwtSecretParam = "/udecfit/jwt-secret"
	}
	jwtSecret, err := resolver.GetSecret(ctx, jwtSecretParam)
	if err != nil {
		logger.Warn("failed to resolve JWT_SECRET, using dev default", zap.Error(err))
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecretParam := os.Getenv("API_GATEWAY_SECRET_PARAM")
	if apiGatewaySecretParam == "" {
		apiGatewaySecretParam = "/udecfit/api-gateway-secret"
	}
	apiGatewaySecret, err := resolver.GetSecret(ctx, apiGatewaySecretParam)
	if err != nil {
		logger.Warn("failed to resolve API_GATEWAY_SECRET", zap.Error(err))
	}

	// ---------- Stores ----------
	var docs docstore.Store
	var objects objectstore.Store
	var attempts throttle.AttemptStore

	if devMode {
		docs = docstore.NewMemoryStore()
		objects = objectstore.NewMemoryStore()
		attempts = throttle.NewMemoryStore()
		logger.Info("using in-memory stores (DEV_MODE=true)")
	} else {
		documentsTable := os.Getenv("DOCUMENTS_TABLE")
		if documentsTable == "" {
			documentsTable = "Documents"
		}
		docs = docstore.NewDynamoStore(dynamoClient, documentsTable)

		attemptsTable := os.Getenv("LOGIN_ATTEMPTS_TABLE")
		if attemptsTable == "" {
			attemptsTable = "LoginAttempts"
		}
		attempts = throttle.NewDynamoStore(dynamoClient, attemptsTable)

		bucket := os.Getenv("BACKUP_BUCKET")
		if bucket == "" {
			bucket = "udecfit-firestore-backups"
		}
		gcsClient, err := google.DefaultClient(ctx, storagev1.DevstorageReadWriteScope)
		if err != nil {
			panic(fmt.Sprintf("unable to build storage credentials, %v", err))
		}
		objects, err = objectstore.NewGCSStore(ctx, gcsClient, bucket)
		if err != nil {
			panic(fmt.Sprintf("unable to create object store, %v", err))
		}
	}

	// ---------- Services and handlers ----------
	backupService := backup.NewService(docs, objects, logger)
	backupHandler := handler.NewBackupHandler(backupService, jwtSecret, logger)

	authService := auth.NewService(docs, throttle.New(attempts), jwtSecret, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	return &App{
		backupHandler:    backupHandler,
		authHandler:      authHandler,
		apiGatewaySecret: apiGatewaySecret,
		logger:           logger,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	app.logger.Info("request", zap.String("method", method), zap.String("path", path))

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Verify request origin (CloudFront only) outside DEV_MODE.
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			app.logger.Warn("missing or invalid X-Origin-Verify header")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying).
	path = strings.TrimPrefix(path, "/api")

	switch path {
	case "/backups":
		switch method {
		case "POST":
			return corsResponse(app.must(app.backupHandler.CreateBackup(ctx, req))), nil
		case "GET":
			return corsResponse(app.must(app.backupHandler.ListBackups(ctx, req))), nil
		}
		return corsResponse(methodNotAllowed(method)), nil

	case "/backups/restore":
		if method == "POST" {
			return corsResponse(app.must(app.backupHandler.RestoreBackup(ctx, req))), nil
		}
		return corsResponse(methodNotAllowed(method)), nil

	case "/auth/login":
		if method == "POST" {
			return corsResponse(app.must(app.authHandler.Login(ctx, req))), nil
		}
		return corsResponse(methodNotAllowed(method)), nil

	case "/auth/register":
		if method == "POST" {
			return corsResponse(app.must(app.authHandler.Register(ctx, req))), nil
		}
		return corsResponse(methodNotAllowed(method)), nil
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// methodNotAllowed builds the 405 response for a known path.
func methodNotAllowed(method string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusMethodNotAllowed,
		Body:       fmt.Sprintf(`{"error":"Method %s not allowed."}`, method),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = os.Getenv("FRONTEND_URL")
	if resp.Headers["Access-Control-Allow-Origin"] == "" {
		resp.Headers["Access-Control-Allow-Origin"] = "*"
	}
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, converting an unexpected error into a 500.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.logger.Error("handler error", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}

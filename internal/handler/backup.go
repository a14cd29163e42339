package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/udecfit/backend/internal/backup"
	"github.com/udecfit/backend/internal/model"
)

// BackupHandler exposes the backup, restore, and list operations. Every
// operation requires an authenticated caller with the admin role.
type BackupHandler struct {
	service   *backup.Service
	jwtSecret string
	logger    *zap.Logger
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(service *backup.Service, jwtSecret string, logger *zap.Logger) *BackupHandler {
	return &BackupHandler{service: service, jwtSecret: jwtSecret, logger: logger}
}

// CreateBackup exports every collection to a new timestamped folder.
func (h *BackupHandler) CreateBackup(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireRole(req, h.jwtSecret, model.RoleAdmin); err != nil {
		return authErrorResponse(err), nil
	}

	folder, err := h.service.CreateBackup(ctx)
	if err != nil {
		h.logger.Error("backup failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, err.Error()), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{
		"message": "Backup completed successfully.",
		"folder":  folder,
	}), nil
}

// RestoreBackup replays a named backup folder into the database. The folder
// is read from the JSON body ("folder", legacy "carpeta") or the query
// string.
func (h *BackupHandler) RestoreBackup(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireRole(req, h.jwtSecret, model.RoleAdmin); err != nil {
		return authErrorResponse(err), nil
	}

	folder := restoreFolder(req)
	err := h.service.Restore(ctx, folder)
	if err != nil {
		if errors.Is(err, backup.ErrMissingFolder) {
			return errorResponse(http.StatusBadRequest, "Missing 'folder' parameter."), nil
		}
		if errors.Is(err, backup.ErrNoFiles) {
			return errorResponse(http.StatusNotFound, err.Error()), nil
		}
		h.logger.Error("restore failed", zap.String("folder", folder), zap.Error(err))
		return errorResponse(http.StatusInternalServerError, err.Error()), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{
		"message": "Restore completed successfully.",
		"folder":  folder,
	}), nil
}

// ListBackups returns all backup folder names, newest first.
func (h *BackupHandler) ListBackups(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := RequireRole(req, h.jwtSecret, model.RoleAdmin); err != nil {
		return authErrorResponse(err), nil
	}

	folders, err := h.service.ListBackups(ctx)
	if err != nil {
		h.logger.Error("list backups failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, err.Error()), nil
	}

	return jsonResponse(http.StatusOK, map[string]any{
		"message": "Backup list retrieved.",
		"backups": folders,
	}), nil
}

// restoreFolder pulls the folder parameter from the body or query string.
func restoreFolder(req events.APIGatewayProxyRequest) string {
	var payload struct {
		Folder  string `json:"folder"`
		Carpeta string `json:"carpeta"`
	}
	if req.Body != "" {
		_ = json.Unmarshal([]byte(req.Body), &payload)
	}
	if payload.Folder != "" {
		return payload.Folder
	}
	if payload.Carpeta != "" {
		return payload.Carpeta
	}
	if v := req.QueryStringParameters["folder"]; v != "" {
		return v
	}
	return req.QueryStringParameters["carpeta"]
}

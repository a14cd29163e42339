// Package backup moves collections between the document database and the
// backup bucket.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/udecfit/backend/internal/docstore"
	"github.com/udecfit/backend/internal/model"
	"github.com/udecfit/backend/internal/objectstore"
)

// backupPrefix is the bucket prefix under which all backup folders live.
const backupPrefix = "backups"

var (
	// ErrMissingFolder is returned by Restore when no folder was supplied.
	ErrMissingFolder = errors.New("missing folder parameter")

	// ErrNoFiles is returned by Restore when the named folder holds no objects.
	ErrNoFiles = errors.New("no backup files found")
)

// Service performs backup, restore, and listing against a document store and
// an object store. One Service instance is safe for concurrent use; each
// operation is stateless.
type Service struct {
	docs    docstore.Store
	objects objectstore.Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a backup Service.
func NewService(docs docstore.Store, objects objectstore.Store, logger *zap.Logger) *Service {
	return &Service{
		docs:    docs,
		objects: objects,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateBackup exports every collection to a new timestamped folder in the
// bucket, one JSON file per collection. Collections are processed
// sequentially; the first failure aborts the run and leaves the folder
// partially populated (no rollback).
func (s *Service) CreateBackup(ctx context.Context) (string, error) {
	folder := backupPrefix + "/" + timestampFolder(s.now().UTC())
	s.logger.Info("starting backup", zap.String("folder", folder))

	collections, err := s.docs.ListCollections(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list collections: %w", err)
	}

	for _, collection := range collections {
		docs, err := s.docs.ExportCollection(ctx, collection)
		if err != nil {
			return "", fmt.Errorf("failed to export collection %s: %w", collection, err)
		}
		if docs == nil {
			docs = []model.Document{}
		}

		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to serialize collection %s: %w", collection, err)
		}

		name := folder + "/" + collection + ".json"
		if err := s.objects.Put(ctx, name, data); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
		s.logger.Info("collection backed up",
			zap.String("collection", collection),
			zap.Int("documents", len(docs)),
		)
	}

	s.logger.Info("backup complete", zap.String("folder", folder))
	return folder, nil
}

// Restore replays every file in the named backup folder into the document
// store. Each collection is applied as one atomic batch; collections already
// restored before a failure stay restored.
func (s *Service) Restore(ctx context.Context, folder string) error {
	if folder == "" {
		return ErrMissingFolder
	}

	prefix := backupPrefix + "/" + folder + "/"
	names, err := s.objects.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w under %s", ErrNoFiles, prefix)
	}

	s.logger.Info("restoring backup", zap.String("folder", folder))

	for _, name := range names {
		data, err := s.objects.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", name, err)
		}

		var docs []model.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}

		collection := strings.TrimSuffix(path.Base(name), ".json")
		if err := s.docs.ImportCollection(ctx, collection, docs); err != nil {
			return fmt.Errorf("failed to restore collection %s: %w", collection, err)
		}
		s.logger.Info("collection restored",
			zap.String("collection", collection),
			zap.Int("documents", len(docs)),
		)
	}

	return nil
}

// ListBackups returns the distinct backup folder names, newest first. The
// timestamp naming scheme sorts lexicographically, so descending string
// order is descending creation order.
func (s *Service) ListBackups(ctx context.Context) ([]string, error) {
	names, err := s.objects.List(ctx, backupPrefix+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	seen := map[string]bool{}
	folders := []string{}
	for _, name := range names {
		parts := strings.Split(name, "/")
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		if !seen[parts[1]] {
			seen[parts[1]] = true
			folders = append(folders, parts[1])
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(folders)))
	return folders, nil
}

// timestampFolder renders t as ISO-8601 with millisecond precision and
// substitutes the characters GCS object browsers mangle (":" and ".").
func timestampFolder(t time.Time) string {
	iso := t.Format("2006-01-02T15:04:05.000Z")
	iso = strings.ReplaceAll(iso, ":", "-")
	return strings.ReplaceAll(iso, ".", "-")
}

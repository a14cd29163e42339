package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSStore implements Store on a Google Cloud Storage bucket.
type GCSStore struct {
	service *storage.Service
	bucket  string
}

// NewGCSStore creates a GCSStore for the given bucket.
// client should be an authenticated http.Client holding storage credentials
// (see golang.org/x/oauth2/google.DefaultClient).
func NewGCSStore(ctx context.Context, client *http.Client, bucket string) (*GCSStore, error) {
	srv, err := storage.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create storage client: %w", err)
	}
	return &GCSStore{service: srv, bucket: bucket}, nil
}

// List returns all object names under prefix, following result pages.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	pageToken := ""
	for {
		call := s.service.Objects.List(s.bucket).Prefix(prefix).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		out, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list objects under %s: %w", prefix, err)
		}
		for _, obj := range out.Items {
			names = append(names, obj.Name)
		}
		if out.NextPageToken == "" {
			break
		}
		pageToken = out.NextPageToken
	}

	return names, nil
}

// Put uploads data as a single object.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	obj := &storage.Object{Name: name}
	_, err := s.service.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to write object %s: %w", name, err)
	}
	return nil
}

// Get downloads an object's content.
func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.service.Objects.Get(s.bucket, name).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unable to download object %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read object %s: %w", name, err)
	}
	return data, nil
}

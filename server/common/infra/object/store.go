package object

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"toolhub/server/toolhub/domain"
)

// ObjectInfo is the subset of bucket listing metadata the sweeper needs.
type ObjectInfo struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// Store wraps one bucket behind put/list/delete and turns stored keys into
// public download links.
type Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

func NewStore(client *minio.Client, bucket, publicBaseURL string) *Store {
	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Put writes the object and returns its public URL. The write completes
// before this returns, so a returned link always points at a stored object.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", domain.ErrStorage, key, err)
	}
	return s.publicBaseURL + "/" + s.bucket + "/" + key, nil
}

func (s *Store) List(ctx context.Context) ([]ObjectInfo, error) {
	var items []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrObjectListing, obj.Err)
		}
		items = append(items, ObjectInfo{Key: obj.Key, SizeBytes: obj.Size, LastModified: obj.LastModified})
	}
	return items, nil
}

func (s *Store) Remove(ctx context.Context, keys []string) error {
	var failed []string
	for _, key := range keys {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			failed = append(failed, key)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: remove failed for %s", domain.ErrStorage, strings.Join(failed, ", "))
	}
	return nil
}

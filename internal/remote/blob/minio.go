// Package blob implements the object-storage boundary on MinIO.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/peakform/trainsync/internal/remote"
)

// Storage stores media payloads in a single bucket and serves them through
// the endpoint's public URL space.
type Storage struct {
	client *minio.Client
	bucket string
}

var _ remote.Blobs = (*Storage)(nil)

// New constructs storage over a connected client and an existing bucket.
func New(client *minio.Client, bucket string) *Storage {
	return &Storage{client: client, bucket: bucket}
}

// Put stores data under path and returns its durable fetch URL.
func (s *Storage) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}
	base := strings.TrimRight(s.client.EndpointURL().String(), "/")
	return fmt.Sprintf("%s/%s/%s", base, s.bucket, path), nil
}

// Remove deletes the object at path. Missing objects are not an error.
func (s *Storage) Remove(ctx context.Context, path string) error {
	err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Package storage archives each processed Document's normalized source
// text: a durable trail for manual reprocessing, without reintroducing
// PDF/DOCX extraction. The dual store's reconcile does not read it.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/qanoon/halp/pkg/config"
)

type SourceArchive interface {
	ArchiveSource(ctx context.Context, documentID, contentHash, text string) error
	FetchSource(ctx context.Context, documentID string) (string, error)
	DeleteSource(ctx context.Context, documentID string) error
	Exists(ctx context.Context, documentID string) (bool, error)
}

type MinIOArchive struct {
	client     *minio.Client
	bucketName string
}

var _ SourceArchive = (*MinIOArchive)(nil)

func objectKey(documentID string) string {
	return fmt.Sprintf("documents/%s/source.txt", documentID)
}

func NewMinIOArchive(ctx context.Context, cfg config.Config) (*MinIOArchive, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIO.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIO.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinIOArchive{client: client, bucketName: cfg.MinIO.BucketName}, nil
}

// ArchiveSource uploads the normalized source text for documentID, with
// contentHash stored in the object metadata.
func (a *MinIOArchive) ArchiveSource(ctx context.Context, documentID, contentHash, text string) error {
	reader := bytes.NewReader([]byte(text))
	_, err := a.client.PutObject(ctx, a.bucketName, objectKey(documentID), reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
		UserMetadata: map[string]string{
			"content-hash": contentHash,
		},
	})
	if err != nil {
		return fmt.Errorf("archive source for document %s: %w", documentID, err)
	}
	return nil
}

func (a *MinIOArchive) FetchSource(ctx context.Context, documentID string) (string, error) {
	obj, err := a.client.GetObject(ctx, a.bucketName, objectKey(documentID), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("fetch source for document %s: %w", documentID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read archived source for document %s: %w", documentID, err)
	}
	return string(data), nil
}

func (a *MinIOArchive) DeleteSource(ctx context.Context, documentID string) error {
	if err := a.client.RemoveObject(ctx, a.bucketName, objectKey(documentID), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete source for document %s: %w", documentID, err)
	}
	return nil
}

func (a *MinIOArchive) Exists(ctx context.Context, documentID string) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucketName, objectKey(documentID), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("check source existence for document %s: %w", documentID, err)
	}
	return true, nil
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/shared"
)

// MinioProvider is the MinIO-native counterpart of S3Provider. The two are
// interchangeable; this one avoids the AWS signing stack when talking to a
// plain MinIO deployment.
type MinioProvider struct {
	opts S3Options
}

func NewMinioProvider(opts S3Options) *MinioProvider {
	return &MinioProvider{opts: opts}
}

// Authenticate creates a client with static V4 credentials and proves them
// with a BucketExists probe, creating the account bucket on first login.
// With a public base URL configured, the bucket gets an anonymous-read
// policy so exported links work without signing.
func (p *MinioProvider) Authenticate(ctx context.Context, handle, secret string) (Session, error) {
	client, err := minio.New(p.opts.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(handle, secret, ""),
		Secure: p.opts.UseSSL,
		Region: p.opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	bucket := BucketName(p.opts.BucketPrefix, handle)

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: p.opts.Region}); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
	}

	if p.opts.PublicBaseURL != "" {
		if err := client.SetBucketPolicy(ctx, bucket, anonymousReadPolicy(bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	return &minioSession{client: client, bucket: bucket, opts: p.opts}, nil
}

type minioSession struct {
	client *minio.Client
	bucket string
	opts   S3Options
}

func (s *minioSession) RootID() string { return "" }

func (s *minioSession) ListNodes(ctx context.Context) (map[string]models.RemoteNode, error) {
	nodes := map[string]models.RemoteNode{}

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		node := nodeFromKey(obj.Key, obj.Size)
		nodes[node.ID] = node
	}
	return nodes, nil
}

func (s *minioSession) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	key := parentID + name + "/"
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return key, nil
}

func (s *minioSession) UploadFile(ctx context.Context, localPath, folderID string) error {
	key := folderID + filepath.Base(localPath)
	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (s *minioSession) ExportPublicLink(ctx context.Context, nodeID string) (string, error) {
	if s.opts.PublicBaseURL != "" {
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + s.bucket + "/" + nodeID, nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, nodeID, 7*24*time.Hour, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrLinkExport, err)
	}
	return u.String(), nil
}

func (s *minioSession) QuotaUsed(ctx context.Context) (int64, error) {
	var used int64

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list objects: %w", obj.Err)
		}
		used += obj.Size
	}
	return used, nil
}

func (s *minioSession) QuotaTotal(ctx context.Context) (int64, error) {
	return s.opts.TotalSpace, nil
}

// anonymousReadPolicy is the S3 bucket policy JSON allowing unauthenticated
// GET on every object in the bucket.
func anonymousReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}

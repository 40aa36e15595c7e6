package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/shared"
)

// S3Options configure the S3 provider. Endpoint is host:port; the scheme is
// chosen by UseSSL. PublicBaseURL, when set, is used to build public links
// directly; otherwise links are presigned.
type S3Options struct {
	Endpoint      string
	Region        string
	UseSSL        bool
	BucketPrefix  string
	PublicBaseURL string
	TotalSpace    int64
}

// S3Provider maps accounts onto per-account buckets of an S3-compatible
// backend. The account handle doubles as access key ID, the secret as the
// secret key. Folders are zero-byte marker objects with a trailing slash.
type S3Provider struct {
	opts S3Options
}

func NewS3Provider(opts S3Options) *S3Provider {
	return &S3Provider{opts: opts}
}

func (p *S3Provider) baseURL() string {
	scheme := "http"
	if p.opts.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, p.opts.Endpoint)
}

// Authenticate builds a client with static credentials and proves them with
// a HeadBucket on the account's bucket, creating the bucket on first login.
func (p *S3Provider) Authenticate(ctx context.Context, handle, secret string) (Session, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(handle, secret, "")))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.baseURL())
		o.UsePathStyle = true
	})

	bucket := BucketName(p.opts.BucketPrefix, handle)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
	}

	return &s3Session{client: client, bucket: bucket, opts: p.opts}, nil
}

type s3Session struct {
	client *s3.Client
	bucket string
	opts   S3Options
}

func (s *s3Session) RootID() string { return "" }

func (s *s3Session) ListNodes(ctx context.Context) (map[string]models.RemoteNode, error) {
	nodes := map[string]models.RemoteNode{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			node := nodeFromKey(key, aws.ToInt64(obj.Size))
			nodes[node.ID] = node
		}
	}
	return nodes, nil
}

// nodeFromKey maps one object key onto the node model: "Films/" is a folder,
// "Films/a.mp4" a file inside it, "readme.txt" a file at the root.
func nodeFromKey(key string, size int64) models.RemoteNode {
	if strings.HasSuffix(key, "/") {
		trimmed := strings.TrimSuffix(key, "/")
		parent := ""
		name := trimmed
		if i := strings.LastIndex(trimmed, "/"); i >= 0 {
			parent = trimmed[:i+1]
			name = trimmed[i+1:]
		}
		return models.RemoteNode{ID: key, Name: name, Type: models.NodeFolder, ParentID: parent}
	}

	parent := ""
	name := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		parent = key[:i+1]
		name = key[i+1:]
	}
	return models.RemoteNode{ID: key, Name: name, Type: models.NodeFile, ParentID: parent, Size: size}
}

func (s *s3Session) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	key := parentID + name + "/"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return key, nil
}

func (s *s3Session) UploadFile(ctx context.Context, localPath, folderID string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := folderID + filepath.Base(localPath)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (s *s3Session) ExportPublicLink(ctx context.Context, nodeID string) (string, error) {
	if s.opts.PublicBaseURL != "" {
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + s.bucket + "/" + nodeID, nil
	}

	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(nodeID),
	}, s3.WithPresignExpires(7*24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrLinkExport, err)
	}
	return req.URL, nil
}

func (s *s3Session) QuotaUsed(ctx context.Context) (int64, error) {
	var used int64

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			used += aws.ToInt64(obj.Size)
		}
	}
	return used, nil
}

func (s *s3Session) QuotaTotal(ctx context.Context) (int64, error) {
	return s.opts.TotalSpace, nil
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
	"github.com/dmitrijs2005/receiptkeeper/internal/filex"
	"github.com/google/uuid"
)

// Options configures the S3-backed blob client.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// UserID scopes object keys to a per-user prefix.
	UserID string

	// AttachmentsDir is the local directory downloads are written to,
	// relative to the working directory.
	AttachmentsDir string
}

// S3Client implements Client over an S3-compatible endpoint (MinIO in
// development).
type S3Client struct {
	api  s3API
	opts Options
}

// s3API is the slice of the S3 client the blob store needs; tests substitute
// a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client builds the AWS client and returns the blob store.
func NewS3Client(ctx context.Context, opts Options) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Client{api: api, opts: opts}, nil
}

// storageKey builds a per-user object key, keeping the original extension so
// links stay recognizable as images.
func (c *S3Client) storageKey(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	return fmt.Sprintf("users/%s/%s%s", c.opts.UserID, uuid.NewString(), ext)
}

// objectURL derives the stable download link for a key.
func (c *S3Client) objectURL(key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.opts.Endpoint, "/"), path.Join(c.opts.Bucket, key))
}

func (c *S3Client) Upload(ctx context.Context, localPath string) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: cannot open %s: %w", common.ErrUploadFailed, localPath, err)
	}
	defer f.Close()

	key := c.storageKey(localPath)

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.opts.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrUploadFailed, err)
	}

	return c.objectURL(key), key, nil
}

func (c *S3Client) Download(ctx context.Context, blobID, destName string) (string, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.opts.Bucket),
		Key:    aws.String(blobID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}
	defer out.Body.Close()

	dir, err := filex.EnsureSubDir(c.opts.AttachmentsDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}

	localPath := filepath.Join(dir, destName)
	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDownloadFailed, err)
	}

	return localPath, nil
}

// Delete removes the blob. A missing key is treated as success, since the
// blob may already have been deleted from another device.
func (c *S3Client) Delete(ctx context.Context, blobID string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.opts.Bucket),
		Key:    aws.String(blobID),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		return fmt.Errorf("blob delete failed: %w", err)
	}
	return nil
}

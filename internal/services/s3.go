// Amazon S3 implementation of [StorageProvider]
//
// S3 has no folders, so a container is a key prefix "<parent>/<name>/" that holds a ".keep" marker object.
package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
)

const keepObject = ".keep"

// S3API is the subset of the S3 client used by [S3Storage].
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores uploads under key prefixes of one bucket.
type S3Storage struct {
	client      S3API
	bucket      string
	credentials aws.CredentialsProvider
}

// NewS3Storage wraps an existing client.
func NewS3Storage(client S3API, bucket string) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: storage bucket", shared.ErrMissingConfig)
	}
	return &S3Storage{client: client, bucket: bucket}, nil
}

// NewS3StorageFromConfig builds a client from the default AWS credential chain.
func NewS3StorageFromConfig(ctx context.Context, region, bucket string) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load aws config: %v", shared.ErrStorageAuth, err)
	}

	st, err := NewS3Storage(s3.NewFromConfig(cfg), bucket)
	if err != nil {
		return nil, err
	}
	st.credentials = cfg.Credentials
	return st, nil
}

func (s *S3Storage) Name() string {
	return "Amazon S3"
}

// Authenticate resolves credentials from the chain. It is a no-op for clients built by [NewS3Storage].
func (s *S3Storage) Authenticate(ctx context.Context) error {
	if s.credentials == nil {
		return nil
	}
	if _, err := s.credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageAuth, err)
	}
	return nil
}

func containerPrefix(name, parentID string) string {
	return path.Join(parentID, name) + "/"
}

// FindContainer reports whether any object exists under the container prefix.
func (s *S3Storage) FindContainer(ctx context.Context, name, parentID string) (string, bool, error) {
	prefix := containerPrefix(name, parentID)
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", false, &StorageRequestError{Op: "find container", Err: err}
	}
	if len(out.Contents) == 0 {
		return "", false, nil
	}
	return prefix, true, nil
}

// CreateContainer writes the marker object and returns the prefix.
func (s *S3Storage) CreateContainer(ctx context.Context, name, parentID string) (string, error) {
	prefix := containerPrefix(name, parentID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(prefix + keepObject),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", &StorageRequestError{Op: "create container", Err: err}
	}
	return prefix, nil
}

// Upload puts file under containerID and returns its key.
func (s *S3Storage) Upload(ctx context.Context, file models.UploadFile, containerID string) (string, error) {
	if file.Open == nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: shared.ErrInvalidArgument}
	}
	src, err := file.Open()
	if err != nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: err}
	}
	defer src.Close()

	key := strings.TrimSuffix(containerID, "/") + "/" + path.Base(file.Name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   src,
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: err}
	}
	return key, nil
}

package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

// S3Backend stores artifacts in an S3 bucket under an optional key prefix.
// Used when runs execute on ephemeral CI workers and artifacts must outlive
// the machine.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend builds a backend from the ambient AWS configuration.
func NewS3Backend(ctx context.Context, bucket, prefix string) (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	return &S3Backend{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (b *S3Backend) key(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

// Path implements Backend.
func (b *S3Backend) Path(key string) string {
	return "s3://" + b.bucket + "/" + b.key(key)
}

// Write implements Backend.
func (b *S3Backend) Write(ctx context.Context, key string, data []byte) (SavedArtifact, error) {
	full := b.key(key)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(full),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return SavedArtifact{}, errors.Wrapf(err, "uploading s3://%s/%s", b.bucket, full)
	}
	return SavedArtifact{
		Path:   b.Path(key),
		Size:   int64(len(data)),
		Format: formatForKey(key),
	}, nil
}

// Read implements Backend.
func (b *S3Backend) Read(ctx context.Context, key string) ([]byte, error) {
	full := b.key(key)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", b.bucket, full)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading s3://%s/%s", b.bucket, full)
	}
	return data, nil
}

// Exists implements Backend.
func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	full := b.key(key)
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "heading s3://%s/%s", b.bucket, full)
	}
	return true, nil
}

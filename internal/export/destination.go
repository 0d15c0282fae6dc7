package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/renameio/v2"
)

// ContentType is the media type artifacts are uploaded with.
const ContentType = "application/octet-stream"

// Destination is where an export artifact is saved.
type Destination interface {
	// Write stores data under name and returns its location.
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// DirDestination saves artifacts into a local directory.
type DirDestination struct {
	dir string
}

// NewDirDestination returns a destination writing into dir.
func NewDirDestination(dir string) *DirDestination {
	return &DirDestination{dir: dir}
}

// Write atomically creates or replaces dir/name.
func (d *DirDestination) Write(_ context.Context, name string, data []byte) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	p := filepath.Join(d.dir, name)
	if err := renameio.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return p, nil
}

// putObjectAPI is the subset of *s3.Client used by S3Destination.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads artifacts to an S3-compatible bucket.
type S3Destination struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	client, err := NewS3Client(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	return &S3Destination{client: client, bucket: bucket, prefix: prefix}, nil
}

// NewS3Client loads the default AWS configuration for region and endpoint.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(cfg, s3opts...), nil
}

// Key returns the object key for name.
func (d *S3Destination) Key(name string) string {
	if d.prefix == "" {
		return name
	}
	return path.Join(d.prefix, name)
}

// Write uploads data and returns its s3:// URI.
func (d *S3Destination) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := d.Key(name)
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", d.bucket, key), nil
}

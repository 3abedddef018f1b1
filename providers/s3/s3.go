// Package s3 provides a piivault.BlobStore backed by AWS S3.
//
// The bucket only ever holds ciphertext: piivault.BlobPipeline encrypts
// before Put and decrypts after Get, so bucket-level access never exposes
// patient images.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hengadev/piivault"
)

// Client is the subset of the S3 API the store uses. Declared as an
// interface so tests can substitute a fake without an AWS account.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements piivault.BlobStore over an S3-compatible object store.
type Store struct {
	client Client
}

// New creates a Store using the default AWS configuration chain (environment,
// shared config, instance role).
func New(ctx context.Context) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg)), nil
}

// NewWithClient creates a Store over an existing client, e.g. one pointed at
// a non-AWS S3-compatible endpoint or a test fake.
func NewWithClient(client Client) *Store {
	return &Store{client: client}
}

// Put uploads an object.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get downloads an object. A missing key maps to piivault.ErrNotFound so
// callers can distinguish "file missing" from every other failure.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", piivault.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s body: %w", bucket, key, err)
	}
	return data, nil
}

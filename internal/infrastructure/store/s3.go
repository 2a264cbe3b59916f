package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/smartshop/backend/internal/domain"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps one object per slot under a key prefix
type S3Store struct {
	api    S3API
	bucket string
	prefix string
}

// NewS3Store creates an S3 backed slot store
func NewS3Store(api S3API, bucket, prefix string) (*S3Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return &S3Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(s.prefix, key+".json")
}

// Load fetches a slot object. Missing objects return domain.ErrSlotNotFound.
func (s *S3Store) Load(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	resp, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSlotNotFound, key)
		}
		return nil, fmt.Errorf("failed to get slot %s from S3: %w", key, err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Save overwrites a slot object
func (s *S3Store) Save(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put slot %s to S3: %w", key, err)
	}
	return nil
}

// Close is a no-op
func (s *S3Store) Close() error { return nil }

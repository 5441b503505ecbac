package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// S3Backend stores blobs in Amazon S3 or a compatible object store, one
// object per blob name under a configurable key prefix.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates an S3 blob backend. When accessKey and secretKey are
// empty the default credential chain is used.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      prefix,
		log:         log,
		locationURI: uri,
	}, nil
}

// StoreBlob writes the blob, overwriting any previous object.
func (b *S3Backend) StoreBlob(ctx context.Context, name string, data []byte) error {
	key := b.objectKey(name)
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}

	b.log.Debug("Stored blob in S3", slog.String("key", key), slog.Int("size", len(data)))
	return nil
}

// LoadBlob reads the blob. Returns ErrBlobNotFound if the object does not
// exist.
func (b *S3Backend) LoadBlob(ctx context.Context, name string) ([]byte, error) {
	key := b.objectKey(name)
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchKey, "NotFound":
				return nil, fmt.Errorf("%w: %s", interfaces.ErrBlobNotFound, name)
			}
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// DeleteBlob removes the blob. S3 deletes are idempotent by protocol.
func (b *S3Backend) DeleteBlob(ctx context.Context, name string) error {
	key := b.objectKey(name)
	_, err := b.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// LocationURI returns the URI identifying this backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) objectKey(name string) string {
	return path.Join(b.prefix, name)
}

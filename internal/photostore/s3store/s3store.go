// Package s3store stores photos in any S3-compatible bucket (AWS S3, MinIO, ...).
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vbonduro/wishlist/internal/photostore"
)

const maxNameAttempts = 5

type Options struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type S3PhotoStore struct {
	client *s3.Client
	bucket string
}

func NewS3PhotoStore(ctx context.Context, opts Options) (*S3PhotoStore, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, errors.New("storage access key and secret key are required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &S3PhotoStore{client: client, bucket: opts.Bucket}, nil
}

// Save writes the photo under dir with a conditional put, so an existing
// object is never overwritten. A taken name is retried with a random suffix.
func (s *S3PhotoStore) Save(ctx context.Context, dir, filename, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}

	name := photostore.CleanFilename(filename, mimeType)
	candidate := name
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		key := path.Join(dir, candidate)
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(mimeType),
			IfNoneMatch: aws.String("*"),
		})
		if err == nil {
			return key, nil
		}
		if !isKeyTaken(err) {
			return "", fmt.Errorf("failed to upload object: %w", err)
		}
		candidate = photostore.WithSuffix(name)
	}
	return "", fmt.Errorf("failed to find free key for %q", name)
}

func (s *S3PhotoStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get object: %w", err)
	}

	mimeType := aws.ToString(out.ContentType)
	if mimeType == "" {
		mimeType = photostore.ExtToMimeType(storageKey)
	}
	return out.Body, mimeType, nil
}

// Delete removes the object. S3 deletes are idempotent, so a missing key is
// not reported as ErrNotFound.
func (s *S3PhotoStore) Delete(ctx context.Context, storageKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// isKeyTaken reports a failed If-None-Match put. Concurrent conditional
// writes to the same key may also answer 409.
func isKeyTaken(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusPreconditionFailed || code == http.StatusConflict
	}
	return false
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey")
}

// Package storage adapts Amazon S3 (and S3-compatible stores such as MinIO
// and LocalStack) to the object interfaces of the importers.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/recorder"
)

// S3API is the subset of the S3 client used by ObjectStore.
type S3API interface {
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObjectTagging(ctx context.Context, input *s3.GetObjectTaggingInput, opts ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error)
	CopyObject(ctx context.Context, input *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectStore reads, tags, moves and deletes objects in S3.
type ObjectStore struct {
	client S3API
}

var (
	_ core.ObjectStore      = (*ObjectStore)(nil)
	_ recorder.ExportSource = (*ObjectStore)(nil)
)

// Option configures an ObjectStore.
type Option func(*ObjectStore)

// WithS3Client sets a custom S3 client (useful for testing and custom endpoints).
func WithS3Client(c S3API) Option {
	return func(s *ObjectStore) { s.client = c }
}

// NewObjectStore creates an object store. Without WithS3Client it uses the
// default AWS configuration chain.
func NewObjectStore(ctx context.Context, opts ...Option) (*ObjectStore, error) {
	s := &ObjectStore{}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
	}
	return s, nil
}

// Open streams an object. The caller closes the body.
func (s *ObjectStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, core.ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, core.ObjectInfo{}, fmt.Errorf("getting object: %w", err)
	}
	return out.Body, core.ObjectInfo{
		ETag: aws.ToString(out.ETag),
		Size: aws.ToInt64(out.ContentLength),
	}, nil
}

// ReadAll returns the whole object.
func (s *ObjectStore) ReadAll(ctx context.Context, bucket, key string) ([]byte, error) {
	body, _, err := s.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("reading object body: %w", err)
	}
	return buf.Bytes(), nil
}

// Tags returns the object's tag set.
func (s *ObjectStore) Tags(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object tags: %w", err)
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, nil
}

// Move copies srcKey to dstKey within bucket and deletes srcKey. A missing
// source whose destination exists is an earlier move that lost its delete
// acknowledgement, and counts as done.
func (s *ObjectStore) Move(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(bucket, srcKey)),
	})
	if err != nil {
		if IsNotFound(err) && s.exists(ctx, bucket, dstKey) {
			return nil
		}
		return fmt.Errorf("copying object: %w", err)
	}
	return s.Delete(ctx, bucket, srcKey)
}

// Delete removes an object.
func (s *ObjectStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

func (s *ObjectStore) exists(ctx context.Context, bucket, key string) bool {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// copySource is the URL-encoded bucket/key form CopyObject expects.
func copySource(bucket, key string) string {
	return (&url.URL{Path: bucket + "/" + key}).EscapedPath()
}

// IsNotFound reports whether err is an S3 missing-object error.
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

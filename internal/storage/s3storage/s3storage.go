package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the subset of *s3.Client the storage uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage keeps gallery blobs in an S3-compatible bucket (AWS, R2, MinIO).
type Storage struct {
	client    ObjectAPI
	bucket    string
	publicURL string
}

func New(ctx context.Context, endpoint, accessKey, secretKey, bucket, region, publicURL string) (*Storage, error) {
	const op = "storage.s3storage.New"

	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // MinIO and R2
		}
	})

	return NewWithClient(client, bucket, publicURL), nil
}

func NewWithClient(client ObjectAPI, bucket, publicURL string) *Storage {
	return &Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	const op = "storage.s3storage.Put"

	// PutObject needs a length; unknown sizes are buffered (callers cap the reader).
	if size < 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		r, size = bytes.NewReader(data), int64(len(data))
	}

	counter := &countingReader{r: r}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          counter,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return 0, fmt.Errorf("%s: upload %s: %w", op, key, err)
	}

	return counter.n, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.s3storage.Delete"

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) URL(key string) string {
	return s.publicURL + "/" + key
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

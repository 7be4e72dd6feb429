package loader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vango-dev/storefront/pkg/lazy"
)

// DefaultMaxBundleSize caps a bundle body.
const DefaultMaxBundleSize = 8 << 20

// GetObjectAPI is the part of *s3.Client the store uses.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store fetches bundles from an S3 bucket.
//
// Example usage:
//
//	client := loader.NewS3Client(loader.S3Config{Region: "eu-west-1"})
//	store := loader.NewS3Store(client, "storefront-views", "bundles/")
type S3Store struct {
	client  GetObjectAPI
	bucket  string
	prefix  string
	ext     string
	maxSize int64
}

// NewS3Store creates a store reading <prefix><name>.js from bucket.
func NewS3Store(client GetObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		ext:     DefaultExt,
		maxSize: DefaultMaxBundleSize,
	}
}

// WithExt sets the key extension.
func (s *S3Store) WithExt(ext string) *S3Store {
	s.ext = ext
	return s
}

// WithMaxSize caps bundle bodies. Zero means no limit.
func (s *S3Store) WithMaxSize(n int64) *S3Store {
	s.maxSize = n
	return s
}

// Fetch implements Store.
func (s *S3Store) Fetch(ctx context.Context, name string) (*Bundle, error) {
	key, err := keyFor(s.prefix, name, s.ext)
	if err != nil {
		return nil, lazy.Fatal(err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = fmt.Errorf("s3 get %s/%s: %w", s.bucket, key, err)
		if isPermanent(err) {
			return nil, lazy.Fatal(err)
		}
		return nil, err
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if s.maxSize > 0 {
		r = io.LimitReader(out.Body, s.maxSize+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%s: %w", s.bucket, key, err)
	}
	if s.maxSize > 0 && int64(len(body)) > s.maxSize {
		return nil, lazy.Fatal(fmt.Errorf("bundle %s exceeds %d bytes", key, s.maxSize))
	}

	return &Bundle{
		Name:        name,
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
		Body:        body,
	}, nil
}

// isPermanent reports whether retrying err cannot succeed.
func isPermanent(err error) bool {
	var (
		noKey    *types.NoSuchKey
		noBucket *types.NoSuchBucket
	)
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}

// S3Config holds the client settings from the loader configuration.
type S3Config struct {
	Region   string
	Endpoint string

	// AccessKeyID and SecretAccessKey sign requests. Empty means anonymous.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: aws.AnonymousCredentials{},
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "storefront",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

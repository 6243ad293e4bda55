package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/kvcachego/objstore"
)

// Client is the slice of the S3 API the store needs. *s3.Client satisfies
// it; tests substitute a mock.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements objstore.ObjectStore for Amazon S3.
type Store struct {
	client Client
	bucket string
}

// Options configures NewClient.
type Options struct {
	// Endpoint overrides the S3 endpoint, e.g. a local MinIO. Empty means AWS.
	Endpoint string
	// Region is the AWS region.
	Region string
	// AccessKeyID and SecretAccessKey are static credentials. When both are
	// empty the SDK's default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	// UsePathStyle forces path-style addressing (bucket in the path, not the
	// host). Required by most S3-compatible endpoints. Callers resolve their
	// default before constructing Options; there is no implicit fallback here.
	UsePathStyle bool
}

// NewClient builds an s3.Client from static options.
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// NewStore creates an S3-backed object store over the given bucket.
// The bucket must already exist.
func NewStore(client Client, bucket string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
	}
}

// Get returns the full payload stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}

// Put creates or overwrites the object under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes the object under key.
// S3 DeleteObject succeeds on absent keys, which is exactly the contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func translateErr(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return objstore.ErrNotFound
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return objstore.ErrNotFound
	}
	return err
}

var (
	_ Client               = (*s3.Client)(nil)
	_ objstore.ObjectStore = (*Store)(nil)
)

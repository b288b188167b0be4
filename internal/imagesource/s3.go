package imagesource

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the S3 client the source uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures access to an S3 compatible bucket store.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Source reads images addressed as s3://bucket/key.
type S3Source struct {
	Client   S3API
	MaxBytes int64
}

// NewS3Source builds an S3 client from the default AWS configuration chain,
// with static credentials and a custom endpoint when given.
func NewS3Source(ctx context.Context, cfg S3Config, maxBytes int64) (*S3Source, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Source{Client: client, MaxBytes: maxBytes}, nil
}

// ParseS3Ref splits s3://bucket/key into bucket and key.
func ParseS3Ref(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s needs a bucket and a key", ErrUnsupportedRef, ref)
	}
	return bucket, key, nil
}

// Fetch implements Source.
func (s *S3Source) Fetch(ctx context.Context, ref string) (Image, error) {
	limit := limitOrDefault(s.MaxBytes)

	bucket, key, err := ParseS3Ref(ref)
	if err != nil {
		return Image{}, err
	}

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Image{}, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	defer func() { _ = out.Body.Close() }()

	if size := aws.ToInt64(out.ContentLength); size > limit {
		return Image{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, ref, size)
	}

	data, err := readLimited(out.Body, limit)
	if err != nil {
		return Image{}, err
	}
	return newImage(ref, data)
}

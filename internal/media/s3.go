package media

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignExpiry bounds how long returned download URLs stay valid.
const presignExpiry = 15 * time.Minute

// S3Config holds the bucket coordinates and credentials. BaseEndpoint is
// set for MinIO-style deployments and left empty for AWS proper.
type S3Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// S3 is an Uploader backed by an S3-compatible object store. URLs are
// presigned GETs rather than public object URLs.
type S3 struct {
	cfg     S3Config
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3 builds the client once; the SDK handles connection reuse.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		cfg:     cfg,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// Upload puts the object and returns a presigned download URL for it.
func (u *S3) Upload(ctx context.Context, data []byte, objectPath string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &u.cfg.Bucket,
		Key:    &objectPath,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("put %q: %w", objectPath, err)
	}
	return u.DownloadURL(ctx, objectPath)
}

// DownloadURL returns a presigned GET URL for the object.
func (u *S3) DownloadURL(ctx context.Context, objectPath string) (string, error) {
	req, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &u.cfg.Bucket,
		Key:    &objectPath,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", objectPath, err)
	}
	return req.URL, nil
}

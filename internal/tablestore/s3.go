package tablestore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/nba-analytics/internal/config"
	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// s3Uploader is the subset of the S3 client the archiver uses.
type s3Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads processed CSV files to an S3 bucket for long-term
// retention.
type S3Archiver struct {
	client    s3Uploader
	bucket    string
	keyPrefix string
}

// NewS3Archiver builds an archiver from the archive configuration, loading
// AWS credentials from the default chain or a named profile.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Archiver{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.S3Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Archive uploads a local file to s3://{bucket}/{prefix}/{basename}.
func (a *S3Archiver) Archive(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s for archive: %w", localPath, err)
	}
	defer f.Close()

	key := path.Join(a.keyPrefix, filepath.Base(localPath))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", a.bucket, key, err)
	}

	logger.Info("archived file to S3", "bucket", a.bucket, "key", key)
	return nil
}

package backup

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
)

// S3Archiver mirrors uploaded payloads into an S3 bucket, keyed by
// prefix/name.
type S3Archiver struct {
	client *s3.Client
	cfg    *config.S3BackupConfig
}

func NewS3Archiver(cfg *config.S3BackupConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup S3 bucket is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Override with explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			}, nil
		})
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Archiver{client: client, cfg: cfg}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, name string, payload []byte) error {
	key := name
	if a.cfg.Prefix != "" {
		key = strings.TrimRight(a.cfg.Prefix, "/") + "/" + name
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to put backup object s3://%s/%s: %w", a.cfg.Bucket, key, err)
	}
	log.Debug().Str("bucket", a.cfg.Bucket).Str("key", key).Msg("Archived upload payload to S3")
	return nil
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zonehub/backend/internal/config"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

// s3Fetcher pulls artifacts from s3://bucket/key sources. A custom endpoint
// supports MinIO and other S3-compatible stores.
type s3Fetcher struct {
	cfg config.S3Config
	log *logger.Logger

	once    sync.Once
	client  *s3.Client
	initErr error
}

func newS3Fetcher(cfg config.S3Config, log *logger.Logger) *s3Fetcher {
	return &s3Fetcher{cfg: cfg, log: log}
}

func (f *s3Fetcher) getClient(ctx context.Context) (*s3.Client, error) {
	f.once.Do(func() {
		region := f.cfg.Region
		if region == "" {
			region = "us-east-1"
		}

		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(region),
		}
		if f.cfg.AccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(f.cfg.AccessKeyID, f.cfg.SecretAccessKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			f.initErr = fmt.Errorf("fetch: load AWS config: %w", err)
			return
		}

		if f.cfg.Endpoint != "" {
			f.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
				o.BaseEndpoint = aws.String(f.cfg.Endpoint)
				o.UsePathStyle = true
			})
		} else {
			f.client = s3.NewFromConfig(awsCfg)
		}
	})
	return f.client, f.initErr
}

func (f *s3Fetcher) fetch(ctx context.Context, u *url.URL, dest io.Writer, progress ProgressFunc) (int64, error) {
	client, err := f.getClient(ctx)
	if err != nil {
		return 0, err
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return 0, fmt.Errorf("fetch: s3 URL must be s3://bucket/key, got %q", u.String())
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("fetch: s3 get %s/%s: %w", bucket, key, err)
	}
	defer obj.Body.Close()

	total := int64(-1)
	if obj.ContentLength != nil {
		total = *obj.ContentLength
	}

	f.log.Infow("fetch_s3_start", "bucket", bucket, "key", key, "size", total)
	return copyWithProgress(dest, obj.Body, total, progress)
}

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"

	"testprobe/internal/probeerrors"
	"testprobe/pkg/logging"
)

// S3Provider streams objects with the SDK's async multi-part transfer
// manager, authenticating via the default credential chain (instance
// role, environment, workload identity) — no application-level secrets.
type S3Provider struct {
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

func NewS3Provider(ctx context.Context) (*S3Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("loading AWS config: %w", err))
	}
	client := s3.NewFromConfig(cfg)
	return &S3Provider{
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
	}, nil
}

func (p *S3Provider) FetchAll(ctx context.Context, bucketURI string, fs afero.Fs, destRoot string) error {
	loc, err := parseBucketURI(bucketURI)
	if err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
		Prefix: aws.String(loc.Prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("listing s3://%s/%s: %w", loc.Bucket, loc.Prefix, err))
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), loc.Prefix)
			rel = strings.TrimPrefix(rel, "/")
			if rel == "" {
				continue
			}
			destPath := path.Join(destRoot, rel)
			if err := fs.MkdirAll(path.Dir(destPath), 0o755); err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, err)
			}

			buf := manager.NewWriteAtBuffer(nil)
			if _, err := p.downloader.Download(ctx, buf, &s3.GetObjectInput{
				Bucket: aws.String(loc.Bucket),
				Key:    obj.Key,
			}); err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("downloading %s: %w", aws.ToString(obj.Key), err))
			}
			if err := afero.WriteFile(fs, destPath, buf.Bytes(), 0o644); err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, err)
			}
		}
	}
	logging.Info("Storage", "fetched s3://%s/%s into %s", loc.Bucket, loc.Prefix, destRoot)
	return nil
}

func (p *S3Provider) UploadAll(ctx context.Context, bucketURI string, fs afero.Fs, srcRoot string) error {
	loc, err := parseBucketURI(bucketURI)
	if err != nil {
		return err
	}

	err = afero.Walk(fs, srcRoot, func(filePath string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(fs, filePath)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(filePath, srcRoot), "/")
		key := path.Join(loc.Prefix, rel)

		_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	return nil
}

package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/spf13/afero"
	"google.golang.org/api/iterator"

	"testprobe/internal/probeerrors"
)

// GCSProvider uses the Cloud Storage client's synchronous reader/writer
// directly: FetchAll and UploadAll copy one object at a time on the
// caller's goroutine and return when the transfer is done, behind the same
// blocking Provider interface as the AWS and Azure adapters. No goroutines
// are started (spec.md §4.5).
type GCSProvider struct {
	client *storage.Client
}

func NewGCSProvider(ctx context.Context) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	return &GCSProvider{client: client}, nil
}

func (p *GCSProvider) FetchAll(ctx context.Context, bucketURI string, fs afero.Fs, destRoot string) error {
	loc, err := parseBucketURI(bucketURI)
	if err != nil {
		return err
	}

	bucket := p.client.Bucket(loc.Bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: loc.Prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("listing gs://%s/%s: %w", loc.Bucket, loc.Prefix, err))
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(attrs.Name, loc.Prefix), "/")
		if rel == "" {
			continue
		}
		destPath := path.Join(destRoot, rel)
		if err := fs.MkdirAll(path.Dir(destPath), 0o755); err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}

		r, err := bucket.Object(attrs.Name).NewReader(ctx)
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("opening %s: %w", attrs.Name, err))
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}
		if err := afero.WriteFile(fs, destPath, data, 0o644); err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}
	}
	return nil
}

func (p *GCSProvider) UploadAll(ctx context.Context, bucketURI string, fs afero.Fs, srcRoot string) error {
	loc, err := parseBucketURI(bucketURI)
	if err != nil {
		return err
	}
	bucket := p.client.Bucket(loc.Bucket)

	walkErr := afero.Walk(fs, srcRoot, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(fs, filePath)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(filePath, srcRoot), "/")
		objName := path.Join(loc.Prefix, rel)

		w := bucket.Object(objName).NewWriter(ctx)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return fmt.Errorf("writing %s: %w", objName, err)
		}
		return w.Close()
	})
	if walkErr != nil {
		return probeerrors.Wrap(probeerrors.KindStorage, walkErr)
	}
	return nil
}

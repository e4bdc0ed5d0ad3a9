package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/spf13/afero"

	"testprobe/internal/probeerrors"
)

// AzureProvider streams blobs using the client's upload/download helpers,
// which internally chunk large transfers the same way the other
// providers' multi-part managers do.
type AzureProvider struct {
	client *azblob.Client
}

func NewAzureProvider() (*AzureProvider, error) {
	// The client is built only from the connection string in
	// AZURE_STORAGE_CONNECTION_STRING; workload identity and the default
	// Azure credential chain are not used.
	connStr := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if connStr == "" {
		return nil, probeerrors.New(probeerrors.KindConfiguration, "AZURE_STORAGE_CONNECTION_STRING not set")
	}
	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	return &AzureProvider{client: client}, nil
}

func (p *AzureProvider) FetchAll(ctx context.Context, bucketURI string, fs afero.Fs, destRoot string) error {
	loc, err := parseBucketURI(bucketURI)
	if err != nil {
		return err
	}

	pager := p.client.NewListBlobsFlatPager(loc.Bucket, &container.ListBlobsFlatOptions{
		Prefix: &loc.Prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("listing container %s: %w", loc.Bucket, err))
		}
		for _, item := range page.Segment.BlobItems {
			name := *item.Name
			rel := strings.TrimPrefix(strings.TrimPrefix(name, loc.Prefix), "/")
			if rel == "" {
				continue
			}
			destPath := path.Join(destRoot, rel)
			if err := fs.MkdirAll(path.Dir(destPath), 0o755); err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, err)
			}

			resp, err := p.client.DownloadStream(ctx, loc.Bucket, name, nil)
			if err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("downloading %s: %w", name, err))
			}
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, err)
			}
			if err := afero.WriteFile(fs, destPath, data, 0o644); err != nil {
				return probeerrors.Wrap(probeerrors.KindStorage, err)
			}
		}
	}
	return nil
}

func (p *AzureProvider) UploadAll(ctx context.Context, bucketURI string, fs afero.Fs, srcRoot string) error {
	loc, err := parseBucketURI(bucketURI)
	if err != nil {
		return err
	}

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
		blobName := path.Join(loc.Prefix, rel)
		_, err = p.client.UploadBuffer(ctx, loc.Bucket, blobName, data, nil)
		return err
	})
	if walkErr != nil {
		return probeerrors.Wrap(probeerrors.KindStorage, walkErr)
	}
	return nil
}

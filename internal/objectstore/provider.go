// Package objectstore adapts the probe's storage pipeline to concrete
// cloud providers (spec.md §4.5, §6 "Bucket URI"). The provider is
// selected from config.yaml's storage.provider and the SDK used is
// invisible to the lifecycle controller: it only sees FetchAll/UploadAll
// against an afero filesystem subtree.
package objectstore

import (
	"context"
	"strings"

	"github.com/spf13/afero"

	"testprobe/internal/probeerrors"
)

// Provider fetches and uploads a test's artifacts between a bucket URI and
// a local (in-memory) filesystem subtree.
type Provider interface {
	// FetchAll copies every object under bucketURI into destRoot on fs.
	FetchAll(ctx context.Context, bucketURI string, fs afero.Fs, destRoot string) error
	// UploadAll streams every file under srcRoot on fs back to bucketURI.
	UploadAll(ctx context.Context, bucketURI string, fs afero.Fs, srcRoot string) error
}

// New resolves a Provider from the configured provider name. The provider
// name, not the bucket URI scheme, is authoritative — config.yaml's
// storage.provider selects the SDK; the URI scheme is only used to derive
// bucket/container/prefix within that provider.
func New(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "local":
		return &LocalProvider{}, nil
	case "aws":
		return NewS3Provider(ctx)
	case "azure":
		return NewAzureProvider()
	case "gcp":
		return NewGCSProvider(ctx)
	default:
		return nil, probeerrors.New(probeerrors.KindConfiguration, "unknown storage provider %q", providerName)
	}
}

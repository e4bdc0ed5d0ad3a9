package objectstore

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"testprobe/internal/probeerrors"
)

// LocalProvider reads/writes against the host filesystem, rooted at the
// bucket URI's path. Used for storage.provider=local (development and
// test-harness runs against a directory standing in for a bucket).
type LocalProvider struct{}

func (p *LocalProvider) FetchAll(ctx context.Context, bucketURI string, fs afero.Fs, destRoot string) error {
	root := strings.TrimPrefix(bucketURI, "file://")

	return filepath.Walk(root, func(p2 string, info os.FileInfo, err error) error {
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p2)
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}
		data, err := os.ReadFile(p2)
		if err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}
		destPath := path.Join(destRoot, filepath.ToSlash(rel))
		if err := fs.MkdirAll(path.Dir(destPath), 0o755); err != nil {
			return probeerrors.Wrap(probeerrors.KindStorage, err)
		}
		return afero.WriteFile(fs, destPath, data, 0o644)
	})
}

func (p *LocalProvider) UploadAll(ctx context.Context, bucketURI string, fs afero.Fs, srcRoot string) error {
	root := strings.TrimPrefix(bucketURI, "file://")

	return afero.Walk(fs, srcRoot, func(filePath string, info os.FileInfo, err error) error {
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
		destPath := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(destPath, data, 0o644)
	})
}

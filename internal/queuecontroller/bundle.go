package queuecontroller

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"testprobe/internal/config"
	"testprobe/internal/objectstore"
	"testprobe/internal/probectx"
	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/internal/stagingfs"
)

// buildBundle wires the concrete storage provider and credential pipeline
// into the curried function values a lifecycle controller uses to reach
// the outside world (spec.md §4.7). fetchSecurity is supplied by the
// caller so this package never needs a compile-time dependency on the
// vault package's concrete pipeline type.
func buildBundle(cfg config.ProbeConfig, provider objectstore.Provider, fetchSecurity probectx.FetchSecurityFunc) probectx.Bundle {
	return probectx.Bundle{
		FetchStorage: func(ctx context.Context, testID probetypes.TestID, bucketURI string) (probetypes.StorageDirective, error) {
			return fetchStorage(ctx, cfg, provider, testID, bucketURI)
		},
		UploadEvidence: func(ctx context.Context, testID probetypes.TestID, bucketURI, evidenceDir string) error {
			return pushEvidence(ctx, provider, bucketURI, evidenceDir)
		},
		FetchSecurity: fetchSecurity,
	}
}

// fetchStorage stages a test's bucket contents, validates the features/
// manifest and parses the topic-directive file into TopicDirectives
// (spec.md §4.5 fetch contract).
func fetchStorage(ctx context.Context, cfg config.ProbeConfig, provider objectstore.Provider, testID probetypes.TestID, bucketURI string) (probetypes.StorageDirective, error) {
	staging, err := stagingfs.New(testID)
	if err != nil {
		return probetypes.StorageDirective{}, err
	}

	if err := provider.FetchAll(ctx, bucketURI, staging.Fs(), staging.Root()); err != nil {
		return probetypes.StorageDirective{}, probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	if err := staging.ValidateManifest(); err != nil {
		return probetypes.StorageDirective{}, err
	}

	manifestPath := path.Join(staging.Root(), cfg.Storage.TopicDirectiveFileName)
	raw, err := afero.ReadFile(staging.Fs(), manifestPath)
	if err != nil {
		return probetypes.StorageDirective{}, probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("reading topic directive manifest %s: %w", manifestPath, err))
	}

	var manifest probetypes.TopicDirectiveFile
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return probetypes.StorageDirective{}, probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("parsing topic directive manifest %s: %w", manifestPath, err))
	}
	if err := manifest.Validate(); err != nil {
		return probetypes.StorageDirective{}, err
	}

	evidenceDir, err := staging.EvidenceDir()
	if err != nil {
		return probetypes.StorageDirective{}, err
	}

	return probetypes.StorageDirective{
		WorkspaceRoot:   staging.URI(staging.Root()),
		EvidenceDir:     staging.URI(evidenceDir),
		TopicDirectives: manifest.Topics,
		SourceBucket:    bucketURI,
	}, nil
}

// pushEvidence resolves a stagingfs:// evidence URI back to its owning
// instance and streams that subtree to the source bucket.
func pushEvidence(ctx context.Context, provider objectstore.Provider, bucketURI, evidenceDirURI string) error {
	staging, p, err := stagingfs.ParsePath(evidenceDirURI)
	if err != nil {
		return err
	}
	if err := provider.UploadAll(ctx, bucketURI, staging.Fs(), p); err != nil {
		return probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	return nil
}

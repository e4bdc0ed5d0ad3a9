// Package probectx defines the service-function context: the bundle of
// curried function values the lifecycle controller and its children use
// to reach storage, vault and Kafka without a compile-time dependency on
// any concrete provider (spec.md §4.7, §9 "service functions as a bundle
// of callables"). Tests construct this bundle directly with stub
// functions instead of standing up real providers.
package probectx

import (
	"context"

	"testprobe/internal/probetypes"
)

// FetchStorageFunc stages a test's artifacts and returns the resulting
// StorageDirective.
type FetchStorageFunc func(ctx context.Context, testID probetypes.TestID, bucketURI string) (probetypes.StorageDirective, error)

// UploadEvidenceFunc streams the evidence directory back to the source
// bucket. It does not purge the staging subtree; the lifecycle controller
// does that after the upload, whatever its outcome.
type UploadEvidenceFunc func(ctx context.Context, testID probetypes.TestID, bucketURI, evidenceDir string) error

// FetchSecurityFunc runs the credential pipeline for one TopicDirective
// and returns its resolved SecurityDirective.
type FetchSecurityFunc func(ctx context.Context, directive probetypes.TopicDirective) (probetypes.SecurityDirective, error)

// Bundle is the service-function context passed to the lifecycle
// controller at construction time. It has no behavior of its own; it is a
// record of function values, not a service object (spec.md §9).
type Bundle struct {
	FetchStorage   FetchStorageFunc
	UploadEvidence UploadEvidenceFunc
	FetchSecurity  FetchSecurityFunc
}

// Package stagingfs implements the in-memory staging filesystem (spec.md
// §4.5): one isolated subtree per test, rooted at /<testID>/, holding the
// staged Gherkin features, the topic-directive manifest and the evidence
// directory produced during test execution.
package stagingfs

import (
	"fmt"
	"net/url"
	"path"
	"sync"

	"github.com/spf13/afero"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
)

const featuresDir = "features"
const evidenceDir = "evidence"

var (
	registryMu sync.Mutex
	registry   = map[string]afero.Fs{}
)

// register adds an afero filesystem instance under its instance id, which
// URI uses as the host of a stagingfs:// URI, so a staged path can later
// be round-tripped through a URI (spec.md §4.5
// "path serialization across in-memory-filesystem boundaries").
func register(instanceID string, fs afero.Fs) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[instanceID] = fs
}

func lookup(instanceID string) (afero.Fs, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	fs, ok := registry[instanceID]
	return fs, ok
}

func unregister(instanceID string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, instanceID)
}

// Staging owns one test's in-memory workspace.
type Staging struct {
	instanceID string
	fs         afero.Fs
	root       string
}

// New creates a fresh, isolated in-memory filesystem instance for testID,
// rooted at /<testID>/. Calling New twice for the same testID is a
// programming error and returns probeerrors.KindInternal.
func New(testID probetypes.TestID) (*Staging, error) {
	instanceID := string(testID)
	if _, exists := lookup(instanceID); exists {
		return nil, probeerrors.New(probeerrors.KindInternal, "staging subtree already exists for test %s", testID)
	}

	fs := afero.NewMemMapFs()
	root := "/" + instanceID
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindStorage, err)
	}

	register(instanceID, fs)
	return &Staging{instanceID: instanceID, fs: fs, root: root}, nil
}

// Fs returns the underlying afero filesystem, scoped to this test's root
// by convention (callers must stay under Root()).
func (s *Staging) Fs() afero.Fs { return s.fs }

// Root returns /<testID>/, the subtree every operation for this test must
// stay confined to.
func (s *Staging) Root() string { return s.root }

// FeaturesDir returns the features/ directory under Root(), the directory
// the Gherkin bridge reads feature files from.
func (s *Staging) FeaturesDir() string { return path.Join(s.root, featuresDir) }

// EvidenceDir returns the evidence/ subdirectory path, creating it if
// necessary.
func (s *Staging) EvidenceDir() (string, error) {
	dir := path.Join(s.root, evidenceDir)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	return dir, nil
}

// URI serializes a path under this instance into a scheme-qualified URI
// that preserves filesystem identity, so it can cross a module boundary
// and be deserialized back to the same in-memory instance rather than
// resolved against the process's default filesystem.
func (s *Staging) URI(p string) string {
	u := url.URL{Scheme: "stagingfs", Host: s.instanceID, Path: p}
	return u.String()
}

// ParsePath deserializes a stagingfs:// URI back into its owning Staging
// instance and the path within it.
func ParsePath(uri string) (*Staging, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	if u.Scheme != "stagingfs" {
		return nil, "", probeerrors.New(probeerrors.KindStorage, "not a stagingfs URI: %s", uri)
	}
	fs, ok := lookup(u.Host)
	if !ok {
		return nil, "", probeerrors.New(probeerrors.KindStorage, "unknown staging instance %q", u.Host)
	}
	return &Staging{instanceID: u.Host, fs: fs, root: "/" + u.Host}, u.Path, nil
}

// Cleanup removes the entire /<testID>/ subtree and de-registers the
// instance. Best-effort: errors are returned but callers must not treat a
// cleanup failure as blocking shutdown.
func (s *Staging) Cleanup() error {
	err := s.fs.RemoveAll(s.root)
	unregister(s.instanceID)
	if err != nil {
		return probeerrors.Wrap(probeerrors.KindStorage, fmt.Errorf("removing staging subtree %s: %w", s.root, err))
	}
	return nil
}

// ValidateManifest checks that the features/ directory exists and is
// non-empty, matching the fetch contract's validation step (a).
func (s *Staging) ValidateManifest() error {
	info, err := s.fs.Stat(s.FeaturesDir())
	if err != nil || !info.IsDir() {
		return probeerrors.New(probeerrors.KindStorage, "features/ directory missing under %s", s.root)
	}
	entries, err := afero.ReadDir(s.fs, s.FeaturesDir())
	if err != nil {
		return probeerrors.Wrap(probeerrors.KindStorage, err)
	}
	if len(entries) == 0 {
		return probeerrors.New(probeerrors.KindStorage, "features/ directory is empty under %s", s.root)
	}
	return nil
}

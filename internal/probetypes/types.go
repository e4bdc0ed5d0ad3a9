// Package probetypes defines the data shapes shared across the probe's
// lifecycle controller and its child subsystems: test identity, storage
// directives, topic/security directives, vault credentials, cloud events
// and the aggregate test result.
package probetypes

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"testprobe/internal/probeerrors"
)

// TestID is a globally unique opaque identifier minted once per accepted
// test. It is immutable and used as the correlation key across logs,
// stream names and child identifiers.
type TestID string

// NewTestID mints a fresh 128-bit test identifier.
func NewTestID() TestID {
	return TestID(uuid.New().String())
}

func (t TestID) String() string { return string(t) }

// TopicRole distinguishes which side of a Kafka topic a directive drives.
type TopicRole string

const (
	RoleProducer TopicRole = "producer"
	RoleConsumer TopicRole = "consumer"
)

// EventFilter selects which CloudEvents a consumer stream surfaces to the
// registry: an event is included iff its (type, payloadVersion) matches
// one of the filters configured for the topic.
type EventFilter struct {
	EventType      string `yaml:"key" json:"eventType"`
	PayloadVersion string `yaml:"value" json:"payloadVersion"`
}

// TopicDirective is the per-topic configuration read from the topic
// directive YAML staged alongside the Gherkin features.
type TopicDirective struct {
	Topic            string            `yaml:"topic" json:"topic"`
	Role             TopicRole         `yaml:"role" json:"role"`
	ClientPrincipal  string            `yaml:"clientPrincipal" json:"clientPrincipal"`
	EventFilters     []EventFilter     `yaml:"eventFilters" json:"eventFilters"`
	Metadata         map[string]string `yaml:"metadata" json:"metadata"`
	BootstrapServers string            `yaml:"bootstrapServers" json:"bootstrapServers,omitempty"`
}

// MatchesFilter reports whether the given (eventType, payloadVersion) pair
// is selected by this directive's filters. An empty filter list matches
// nothing by design (spec.md §4.3.1: "tests opt in to specific event
// types").
func (d TopicDirective) MatchesFilter(eventType, payloadVersion string) bool {
	for _, f := range d.EventFilters {
		if f.EventType == eventType && f.PayloadVersion == payloadVersion {
			return true
		}
	}
	return false
}

// TopicDirectiveFile is the top-level shape of the topic directive YAML.
type TopicDirectiveFile struct {
	Topics []TopicDirective `yaml:"topics"`
}

// Validate enforces the topic-directive manifest's structural invariants
// (spec.md §4.5 fetch contract clause (c), §8 testable property 8):
// topic names are non-empty and unique across the directive list, and a
// directive's bootstrapServers override, when present, is a
// comma-separated list of host:port with ports in [1,65535] and
// hostnames not beginning with a hyphen.
func (f TopicDirectiveFile) Validate() error {
	seen := make(map[string]bool, len(f.Topics))
	var duplicates []string
	for _, td := range f.Topics {
		if td.Topic == "" {
			return probeerrors.New(probeerrors.KindValidation, "topic directive entry missing required topic name")
		}
		if seen[td.Topic] && !contains(duplicates, td.Topic) {
			duplicates = append(duplicates, td.Topic)
		}
		seen[td.Topic] = true

		if err := validateBootstrapServers(td.BootstrapServers); err != nil {
			return probeerrors.New(probeerrors.KindValidation, "topic %s: %v", td.Topic, err)
		}
	}
	if len(duplicates) > 0 {
		return probeerrors.New(probeerrors.KindValidation, "duplicate topics: %s", strings.Join(duplicates, ", "))
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// validateBootstrapServers checks a comma-separated host:port list. An
// empty string is valid (the caller falls back to the system default).
func validateBootstrapServers(servers string) error {
	if servers == "" {
		return nil
	}
	for _, hp := range strings.Split(servers, ",") {
		hp = strings.TrimSpace(hp)
		host, portStr, err := net.SplitHostPort(hp)
		if err != nil {
			return fmt.Errorf("invalid bootstrap server %q: %v", hp, err)
		}
		if host == "" || strings.HasPrefix(host, "-") {
			return fmt.Errorf("invalid bootstrap server %q: hostname must not be empty or start with a hyphen", hp)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid bootstrap server %q: port must be in [1,65535]", hp)
		}
	}
	return nil
}

// StorageDirective is the manifest produced by the staging fetch step.
type StorageDirective struct {
	WorkspaceRoot   string
	EvidenceDir     string
	TopicDirectives []TopicDirective
	SourceBucket    string
}

// SecurityProtocol selects the Kafka client wire security mode.
type SecurityProtocol string

const (
	SecuritySASLSSL   SecurityProtocol = "SASL_SSL"
	SecurityPlaintext SecurityProtocol = "PLAINTEXT"
)

// VaultCredentials is the product of Rosetta-mapping a vault response.
// These strings must never be logged.
type VaultCredentials struct {
	Topic        string
	Role         TopicRole
	ClientID     string
	ClientSecret string
}

// SecurityDirective is the streaming layer's resolved, per-topic
// credential shape. It is constructed by the credential pipeline, never
// supplied directly by user mapping.
type SecurityDirective struct {
	Topic            string
	Role             TopicRole
	SecurityProtocol SecurityProtocol
	JaasConfig       string
}

// Key identifies a SecurityDirective by (topic, role), matching the
// invariant that exactly one SecurityDirective exists per TopicDirective.
func (s SecurityDirective) Key() string {
	return fmt.Sprintf("%s/%s", s.Topic, s.Role)
}

// CloudEvent is the structured Kafka record key carrying event metadata.
// CorrelationID doubles as the partition key and the registry lookup key.
type CloudEvent struct {
	ID             string            `json:"id"`
	Source         string            `json:"source"`
	Type           string            `json:"type"`
	PayloadVersion string            `json:"payloadversion"`
	CorrelationID  string            `json:"correlationid"`
	Extra          map[string]string `json:"-"`
}

// TestResult is produced once per test by the Gherkin executor bridge.
type TestResult struct {
	ScenarioCount   int
	ScenariosPassed int
	ScenariosFailed int
	Duration        time.Duration
	FailureSummary  string
}

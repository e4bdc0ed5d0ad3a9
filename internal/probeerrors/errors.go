// Package probeerrors defines the probe's error taxonomy (spec.md §7) and
// the redaction utility that keeps credential material out of logs and
// error payloads.
package probeerrors

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind is the stable, machine-readable error code surfaced at the
// inbound API boundary.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindConfiguration      Kind = "configuration"
	KindStorage            Kind = "storage"
	KindVault              Kind = "vault"
	KindMapping            Kind = "mapping"
	KindCucumber           Kind = "cucumber"
	KindProducer           Kind = "producer"
	KindConsumer           Kind = "consumer"
	KindTimeout            Kind = "timeout"
	KindServiceUnavailable Kind = "serviceUnavailable"
	KindInternal           Kind = "internal"
	KindNotFound           Kind = "notFound"
	KindNotReady           Kind = "notReady"
	KindGone               Kind = "gone"
	KindServiceTimeout     Kind = "serviceTimeout"
)

// ProbeError is the structured error type threaded through the lifecycle
// controller, the queue controller and the inbound API.
type ProbeError struct {
	Code       Kind
	Message    string
	Details    []string
	RetryHint  *time.Duration
	TimestampMs int64
	cause      error
}

// New constructs a ProbeError, redacting the message before storing it.
func New(code Kind, format string, args ...interface{}) *ProbeError {
	return &ProbeError{
		Code:        code,
		Message:     Redact(fmt.Sprintf(format, args...)),
		TimestampMs: time.Now().UnixMilli(),
	}
}

// Wrap attaches a Kind to an underlying error, redacting its message.
func Wrap(code Kind, err error) *ProbeError {
	if err == nil {
		return nil
	}
	return &ProbeError{
		Code:        code,
		Message:     Redact(err.Error()),
		TimestampMs: time.Now().UnixMilli(),
		cause:       err,
	}
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ProbeError) Unwrap() error { return e.cause }

// WithDetails attaches structured detail strings (e.g. every bad Rosetta
// placeholder found during validation) and returns the receiver for
// chaining.
func (e *ProbeError) WithDetails(details ...string) *ProbeError {
	e.Details = append(e.Details, details...)
	return e
}

// WithRetryHint attaches a suggested client retry delay.
func (e *ProbeError) WithRetryHint(d time.Duration) *ProbeError {
	e.RetryHint = &d
	return e
}

// redactionPatterns match the shapes credential material tends to take in
// free-form error/log text: key="value" secrets, bearer-style tokens and
// JAAS login-module option values.
var redactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(client[_-]?secret|client[_-]?id|password|token|secret)\s*[=:]\s*"?[^"\s,;]+"?`),
	regexp.MustCompile(`(?i)oauth\.client\.(id|secret)\s*=\s*"[^"]*"`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
}

// Redact replaces any substring that looks like credential material with
// a fixed placeholder. It is applied to every error message and log line
// that might carry vault or Kafka OAuth secrets (spec.md §7).
func Redact(s string) string {
	out := s
	for _, pat := range redactionPatterns {
		out = pat.ReplaceAllStringFunc(out, func(match string) string {
			if idx := strings.IndexAny(match, "=:"); idx >= 0 {
				return match[:idx+1] + "[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return out
}

// Collection accumulates multiple errors from a single validation pass
// (e.g. every bad Rosetta template placeholder, spec.md §4.4 step 1:
// "all bad references are reported together, not fail-fast").
type Collection struct {
	Errors []*ProbeError
}

func (c *Collection) Add(err *ProbeError) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

func (c *Collection) HasErrors() bool { return len(c.Errors) > 0 }

func (c *Collection) Error() string {
	msgs := make([]string, len(c.Errors))
	for i, e := range c.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// AsError returns the collection as an error, or nil if empty.
func (c *Collection) AsError() error {
	if !c.HasErrors() {
		return nil
	}
	return c
}

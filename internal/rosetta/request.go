// Package rosetta implements the credential pipeline's request-building
// template engine and response-mapping pipeline (spec.md §4.4): building
// the vault request body from a TopicDirective and framework config, then
// mapping an arbitrary vault response JSON into VaultCredentials.
package rosetta

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
)

// placeholderPattern matches the three placeholder kinds the request
// template may contain:
//
//	{{$^request-params.<path>}}   -- config namespace lookup
//	{{'<key>'}}                   -- TopicDirective.Metadata lookup
//	{{<field>}}                   -- TopicDirective built-in field
var placeholderPattern = regexp.MustCompile(`\{\{\s*(\$\^[^}]+|'[^']*'|[A-Za-z0-9._-]+)\s*\}\}`)

var requestParamsPathPattern = regexp.MustCompile(`^request-params\.[A-Za-z0-9._-]+$`)

var builtinFields = map[string]bool{"topic": true, "role": true, "clientPrincipal": true}

// RequestBuilder resolves placeholders in a free-form JSON request
// template against a TopicDirective and the framework's request-params
// namespace.
type RequestBuilder struct {
	RequestParams map[string]string
}

// NewRequestBuilder constructs a RequestBuilder bound to the
// request-params namespace from config.yaml's vault.requestParams.
func NewRequestBuilder(requestParams map[string]string) *RequestBuilder {
	return &RequestBuilder{RequestParams: requestParams}
}

// Build renders every placeholder in template against directive, returning
// an accumulated validation error listing every bad reference rather than
// failing on the first one (spec.md §4.4 step 1, §8 invariant 10).
func (b *RequestBuilder) Build(tmpl string, directive probetypes.TopicDirective) (string, error) {
	errs := probeerrors.Collection{}
	var missingMetaKeys []string

	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		inner := placeholderPattern.FindStringSubmatch(match)[1]

		switch {
		case strings.HasPrefix(inner, "$^"):
			path := strings.TrimPrefix(inner, "$^")
			if !requestParamsPathPattern.MatchString(path) {
				errs.Add(probeerrors.New(probeerrors.KindMapping,
					"invalid config path %q: must match ^request-params\\.[A-Za-z0-9._-]+$", path).
					WithDetails(match))
				return match
			}
			key := strings.TrimPrefix(path, "request-params.")
			val, ok := b.RequestParams[key]
			if !ok {
				errs.Add(probeerrors.New(probeerrors.KindMapping,
					"request-params key %q not found in configuration", key).WithDetails(match))
				return match
			}
			return val

		case strings.HasPrefix(inner, "'") && strings.HasSuffix(inner, "'"):
			key := strings.Trim(inner, "'")
			val, ok := directive.Metadata[key]
			if !ok {
				missingMetaKeys = append(missingMetaKeys, key)
				return match
			}
			return val

		default:
			if !builtinFields[inner] {
				errs.Add(probeerrors.New(probeerrors.KindMapping,
					"unknown built-in field %q: must be one of topic, role, clientPrincipal", inner).
					WithDetails(match))
				return match
			}
			switch inner {
			case "topic":
				return directive.Topic
			case "role":
				return string(directive.Role)
			case "clientPrincipal":
				return directive.ClientPrincipal
			}
			return match
		}
	})

	if len(missingMetaKeys) > 0 {
		available := availableKeys(directive.Metadata)
		errs.Add(probeerrors.New(probeerrors.KindMapping,
			"metadata keys not found: %s (available keys: %s)",
			strings.Join(missingMetaKeys, ", "), strings.Join(available, ", ")))
	}

	if errs.HasErrors() {
		return "", errs.AsError()
	}
	return result, nil
}

func availableKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return []string{"(none)"}
	}
	return keys
}

// ErrNoTemplate is returned by callers that attempt to build a request
// with no configured template.
var ErrNoTemplate = fmt.Errorf("no request template configured")

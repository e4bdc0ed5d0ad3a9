package rosetta

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
)

// TransformType names one of the response-mapping transformation steps.
type TransformType string

const (
	TransformBase64Decode TransformType = "base64Decode"
	TransformBase64Encode TransformType = "base64Encode"
	TransformConcat       TransformType = "concat"
	TransformPrefix       TransformType = "prefix"
	TransformSuffix       TransformType = "suffix"
	TransformToUpper      TransformType = "toUpper"
	TransformToLower      TransformType = "toLower"
	TransformDefault      TransformType = "default"
)

// Transformation is one step in a mapping's transformation chain.
type Transformation struct {
	Type  TransformType `yaml:"type" json:"type"`
	Value string        `yaml:"value,omitempty" json:"value,omitempty"`
}

// Mapping binds a JSONPath expression in the vault response to a
// VaultCredentials field, through an optional transformation chain.
type Mapping struct {
	TargetField     string           `yaml:"targetField" json:"targetField"`
	SourcePath      string           `yaml:"sourcePath" json:"sourcePath"`
	Transformations []Transformation `yaml:"transformations,omitempty" json:"transformations,omitempty"`
}

// MappingFile is the top-level shape of a Rosetta mapping file.
type MappingFile struct {
	RequestTemplate map[string]interface{} `yaml:"request-template,omitempty" json:"request-template,omitempty"`
	Mappings        []Mapping              `yaml:"mappings" json:"mappings"`
}

var validTargetFields = map[string]bool{"clientId": true, "clientSecret": true}

// Apply evaluates every mapping against the parsed vault response and
// produces VaultCredentials for (topic, role). Unknown target fields and
// JSONPath misses are reported as a mapping error; a transformation error
// fails the whole Apply call, with the failing target field in the error's
// details. Apply stops at the first failing mapping.
func Apply(responseJSON []byte, mappings []Mapping, topic string, role probetypes.TopicRole) (probetypes.VaultCredentials, error) {
	parsed, err := oj.Parse(responseJSON)
	if err != nil {
		return probetypes.VaultCredentials{}, probeerrors.Wrap(probeerrors.KindMapping, fmt.Errorf("parsing vault response: %w", err))
	}

	creds := probetypes.VaultCredentials{Topic: topic, Role: role}

	for _, m := range mappings {
		if !validTargetFields[m.TargetField] {
			return probetypes.VaultCredentials{}, probeerrors.New(probeerrors.KindMapping,
				"unknown target field %q: must be one of clientId, clientSecret", m.TargetField)
		}

		expr, err := jp.ParseString(m.SourcePath)
		if err != nil {
			return probetypes.VaultCredentials{}, probeerrors.New(probeerrors.KindMapping,
				"invalid JSONPath %q for target %q: %v", m.SourcePath, m.TargetField, err)
		}

		results := expr.Get(parsed)
		if len(results) == 0 {
			return probetypes.VaultCredentials{}, probeerrors.New(probeerrors.KindMapping,
				"JSONPath %q matched nothing in vault response for target %q", m.SourcePath, m.TargetField)
		}

		value := fmt.Sprintf("%v", results[0])
		value, err = applyTransformations(value, m.Transformations)
		if err != nil {
			return probetypes.VaultCredentials{}, probeerrors.Wrap(probeerrors.KindMapping, err).
				WithDetails(fmt.Sprintf("target=%s", m.TargetField))
		}

		switch m.TargetField {
		case "clientId":
			creds.ClientID = value
		case "clientSecret":
			creds.ClientSecret = value
		}
	}

	return creds, nil
}

func applyTransformations(value string, chain []Transformation) (string, error) {
	for _, t := range chain {
		var err error
		value, err = applyOne(value, t)
		if err != nil {
			return "", err
		}
	}
	return value, nil
}

func applyOne(value string, t Transformation) (string, error) {
	switch t.Type {
	case TransformBase64Decode:
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", fmt.Errorf("base64Decode: %w", err)
		}
		return string(decoded), nil
	case TransformBase64Encode:
		return base64.StdEncoding.EncodeToString([]byte(value)), nil
	case TransformConcat:
		return value + t.Value, nil
	case TransformPrefix:
		return t.Value + value, nil
	case TransformSuffix:
		return value + t.Value, nil
	case TransformToUpper:
		return strings.ToUpper(value), nil
	case TransformToLower:
		return strings.ToLower(value), nil
	case TransformDefault:
		if value == "" {
			return t.Value, nil
		}
		return value, nil
	default:
		return "", fmt.Errorf("unknown transformation type %q", t.Type)
	}
}

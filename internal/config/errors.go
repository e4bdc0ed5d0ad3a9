package config

import (
	"fmt"
	"strings"
)

// ConfigurationError is a single structured configuration problem found
// while loading or validating config.yaml.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`
	Field     string `json:"field"`
	ErrorType string `json:"errorType"` // missing, invalid, range, contradiction
	Message   string `json:"message"`
}

func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.Field, ce.Message)
}

// ConfigurationErrorCollection accumulates every validation failure so
// config loading fails fast with the complete picture, not one field at a
// time.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}
	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

func (cec *ConfigurationErrorCollection) HasErrors() bool { return len(cec.Errors) > 0 }

func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

func (cec *ConfigurationErrorCollection) AddError(filePath, field, errorType, message string) {
	cec.Add(ConfigurationError{FilePath: filePath, Field: field, ErrorType: errorType, Message: message})
}

// AsError returns the collection as an error, or nil when empty.
func (cec *ConfigurationErrorCollection) AsError() error {
	if !cec.HasErrors() {
		return nil
	}
	return cec
}

func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("Detailed Configuration Error Report (%d errors):", len(cec.Errors)))
	parts = append(parts, strings.Repeat("=", 60))
	for i, err := range cec.Errors {
		parts = append(parts, fmt.Sprintf("\nError %d: %s", i+1, err.Error()))
	}
	return strings.Join(parts, "\n")
}

func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{Errors: make([]ConfigurationError, 0)}
}
